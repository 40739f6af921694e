package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/response"
)

var errForeignEnrollment = appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func isStaff(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && claims.Role.IsStaff()
}

// studentScope resolves the student a request acts for. Students always act
// as themselves; staff must name the student.
func studentScope(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role.IsStaff() {
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "student_id is required")
		}
		return requested, nil
	}
	if requested != "" && requested != claims.UserID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only act for themselves")
	}
	return claims.UserID, nil
}

// ensureOwner rejects students reading another student's enrollment.
func ensureOwner(c *gin.Context, studentID string) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role.IsStaff() || claims.UserID == studentID {
		return nil
	}
	return errForeignEnrollment
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
