package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/response"
)

type examService interface {
	CreateSlots(ctx context.Context, req models.CreateExamSlotsRequest, actorID string) ([]models.ExamSlot, error)
	ListSlots(ctx context.Context, filter models.ExamSlotFilter) ([]models.ExamSlot, error)
	Book(ctx context.Context, studentID, examID string) (*models.BookingResult, error)
	Cancel(ctx context.Context, bookingID, actorID string, staff bool) (*models.ExamBooking, error)
}

// ExamHandler exposes exam slot and booking endpoints.
type ExamHandler struct {
	exams examService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

type bookExamRequest struct {
	StudentID string `json:"student_id"`
}

// CreateSlots godoc
// @Summary Open exam slots for a batch
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body models.CreateExamSlotsRequest true "Slots payload"
// @Success 201 {object} response.Envelope
// @Router /exam-slots [post]
func (h *ExamHandler) CreateSlots(c *gin.Context) {
	var req models.CreateExamSlotsRequest
	if !bindJSON(c, &req) {
		return
	}
	slots, err := h.exams.CreateSlots(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots)
}

// ListSlots godoc
// @Summary List exam slots
// @Tags Exams
// @Produce json
// @Param program_id query string false "Program"
// @Param batch_id query string false "Batch"
// @Param status query string false "Slot status"
// @Success 200 {object} response.Envelope
// @Router /exam-slots [get]
func (h *ExamHandler) ListSlots(c *gin.Context) {
	filter := models.ExamSlotFilter{
		ProgramID: c.Query("program_id"),
		BatchID:   c.Query("batch_id"),
		Status:    models.ExamSlotStatus(c.Query("status")),
	}
	slots, err := h.exams.ListSlots(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Book godoc
// @Summary Book a seat in an exam slot
// @Tags Exams
// @Produce json
// @Param id path string true "Exam slot ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exam-slots/{id}/book [post]
func (h *ExamHandler) Book(c *gin.Context) {
	var req bookExamRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	studentID, err := studentScope(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exams.Book(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Cancel godoc
// @Summary Cancel an exam booking
// @Tags Exams
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *ExamHandler) Cancel(c *gin.Context) {
	booking, err := h.exams.Cancel(c.Request.Context(), c.Param("id"), actorID(c), isStaff(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, booking)
}
