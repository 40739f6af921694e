package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req models.CreateEnrollmentRequest, actorID string) (*models.Enrollment, error)
	Status(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs handler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll a student into a program
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req models.CreateEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ListForStudent godoc
// @Summary List a student's enrollments with refreshed positions
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/enrollments [get]
func (h *EnrollmentHandler) ListForStudent(c *gin.Context) {
	enrollments, err := h.enrollments.Status(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
