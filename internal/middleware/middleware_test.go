package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/middleware/requestid"
)

type fakeValidator struct {
	claims *models.JWTClaims
}

func (f fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return f.claims, nil
}

func newRouter(role models.UserRole, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(fakeValidator{claims: &models.JWTClaims{UserID: "student-1", Role: role}}))
	handlers := append(guards, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/students/:studentId/assignments", handlers...)
	return r
}

func serve(r *gin.Engine, path, auth string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTMiddleware(t *testing.T) {
	r := newRouter(models.RoleStudent)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/student-1/assignments", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/student-1/assignments", "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/student-1/assignments", "Bearer bad"))
	assert.Equal(t, http.StatusNoContent, serve(r, "/students/student-1/assignments", "Bearer good"))
}

func TestRBACStaffOrSelf(t *testing.T) {
	student := newRouter(models.RoleStudent, StaffOrSelf())
	assert.Equal(t, http.StatusNoContent, serve(student, "/students/student-1/assignments", "Bearer good"))
	assert.Equal(t, http.StatusForbidden, serve(student, "/students/student-2/assignments", "Bearer good"))

	instructor := newRouter(models.RoleInstructor, StaffOrSelf())
	assert.Equal(t, http.StatusNoContent, serve(instructor, "/students/student-2/assignments", "Bearer good"))

	adminOnly := newRouter(models.RoleInstructor, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(adminOnly, "/students/student-1/assignments", "Bearer good"))
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	assert.Nil(t, ExtractMeta(c))
	SetCacheHit(c, true)
	assert.Equal(t, true, ExtractMeta(c)["cache_hit"])
}

func TestWithResponseMetaEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/", func(c *gin.Context) {
		SetMeta(c, MetaTerm, 2)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-42", meta[MetaRequestID])
	assert.Equal(t, 2, meta[MetaTerm])
}
