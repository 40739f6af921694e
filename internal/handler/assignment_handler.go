package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/response"
)

type assignmentService interface {
	Submit(ctx context.Context, req models.SubmitAssignmentRequest) (*models.Assignment, error)
	Grade(ctx context.Context, assignmentID string, req models.GradeAssignmentRequest) (*models.Assignment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Assignment, error)
	Upload(ctx context.Context, studentID, courseID string, term, week int, filename string, r io.Reader) (*models.UploadedFile, error)
}

// AssignmentHandler exposes submission and grading endpoints.
type AssignmentHandler struct {
	assignments assignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignments assignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Submit godoc
// @Summary Submit or resubmit a weekly assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.SubmitAssignmentRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	var req models.SubmitAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	studentID, err := studentScope(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID
	assignment, err := h.assignments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Upload godoc
// @Summary Upload a submission file
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Submission file"
// @Param course_id formData string true "Course ID"
// @Param term formData int true "Term"
// @Param week formData int true "Week"
// @Success 201 {object} response.Envelope
// @Router /assignments/upload [post]
func (h *AssignmentHandler) Upload(c *gin.Context) {
	studentID, err := studentScope(c, c.PostForm("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	term, errTerm := strconv.Atoi(c.PostForm("term"))
	week, errWeek := strconv.Atoi(c.PostForm("week"))
	if errTerm != nil || errWeek != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term and week must be integers"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	uploaded, err := h.assignments.Upload(c.Request.Context(), studentID, c.PostForm("course_id"), term, week, header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploaded)
}

// ListForStudent godoc
// @Summary List a student's submissions
// @Tags Assignments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/assignments [get]
func (h *AssignmentHandler) ListForStudent(c *gin.Context) {
	assignments, err := h.assignments.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.GradeAssignmentRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/grade [post]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	var req models.GradeAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.GraderID = actorID(c)
	assignment, err := h.assignments.Grade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignment)
}
