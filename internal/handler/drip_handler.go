package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/response"
)

type dripService interface {
	Enrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	ListLessons(ctx context.Context, programID string) ([]models.Lesson, error)
	ListAvailableLessons(ctx context.Context, enrollmentID string) ([]models.AvailableLesson, *models.Enrollment, error)
	Refresh(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	ProgressSummary(ctx context.Context, enrollmentID string) (*models.ProgressSummary, error)
	RecordCompletion(ctx context.Context, studentID, lessonID string) (*models.Progress, error)
}

// DripHandler exposes lesson release and progress endpoints.
type DripHandler struct {
	drip dripService
}

// NewDripHandler constructs handler.
func NewDripHandler(drip dripService) *DripHandler {
	return &DripHandler{drip: drip}
}

type completeLessonRequest struct {
	StudentID string `json:"student_id"`
}

// Lessons godoc
// @Summary List unlocked lessons of an enrollment
// @Tags Drip
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/lessons [get]
func (h *DripHandler) Lessons(c *gin.Context) {
	if err := authorizeEnrollment(c, h.drip, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	lessons, enrollment, err := h.drip.ListAvailableLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaTerm, enrollment.CurrentTerm)
	middleware.SetMeta(c, middleware.MetaWeek, enrollment.CurrentWeek)
	response.JSON(c, http.StatusOK, lessons, nil, middleware.ExtractMeta(c))
}

// Refresh godoc
// @Summary Recompute the calendar position of an enrollment
// @Tags Drip
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/refresh [post]
func (h *DripHandler) Refresh(c *gin.Context) {
	if err := authorizeEnrollment(c, h.drip, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.drip.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Progress godoc
// @Summary Progress summary of an enrollment
// @Tags Drip
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/progress [get]
func (h *DripHandler) Progress(c *gin.Context) {
	if err := authorizeEnrollment(c, h.drip, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.drip.ProgressSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Syllabus godoc
// @Summary List every lesson of a program
// @Description Students receive titles and positions only; content references are withheld until a lesson unlocks on their enrollment.
// @Tags Drip
// @Produce json
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{programId}/lessons [get]
func (h *DripHandler) Syllabus(c *gin.Context) {
	lessons, err := h.drip.ListLessons(c.Request.Context(), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, syllabusFor(c, lessons))
}

func syllabusFor(c *gin.Context, lessons []models.Lesson) []models.Lesson {
	if isStaff(c) {
		return lessons
	}
	out := make([]models.Lesson, len(lessons))
	for i, lesson := range lessons {
		lesson.ContentRef = ""
		out[i] = lesson
	}
	return out
}

// Complete godoc
// @Summary Mark a lesson completed
// @Tags Drip
// @Accept json
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Success 201 {object} response.Envelope
// @Router /lessons/{lessonId}/complete [post]
func (h *DripHandler) Complete(c *gin.Context) {
	var req completeLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID, err := studentScope(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	progress, err := h.drip.RecordCompletion(c.Request.Context(), studentID, c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, progress)
}

// authorizeEnrollment checks a student's ownership before any work runs on
// the enrollment. Missing and foreign enrollments both answer 403 to students.
func authorizeEnrollment(c *gin.Context, drip dripService, enrollmentID string) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role.IsStaff() {
		return nil
	}
	enrollment, err := drip.Enrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			return errForeignEnrollment
		}
		return err
	}
	return ensureOwner(c, enrollment.StudentID)
}
