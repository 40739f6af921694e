package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/middleware"
	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/response"
)

type gradeService interface {
	FinalGrade(ctx context.Context, studentID, programID string) (*models.FinalGrade, bool, error)
	RecordExamScore(ctx context.Context, req models.RecordExamScoreRequest) (*models.GradeRecord, error)
}

type transcriptService interface {
	TranscriptPDF(ctx context.Context, studentID, programID string) ([]byte, error)
	GradebookCSV(ctx context.Context, programID string) ([]byte, error)
}

// GradeHandler exposes grade endpoints.
type GradeHandler struct {
	grades      gradeService
	transcripts transcriptService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService, transcripts transcriptService) *GradeHandler {
	return &GradeHandler{grades: grades, transcripts: transcripts}
}

// FinalGrade godoc
// @Summary Compute a student's final grade in a program
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Param programId path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /grades/{studentId}/{programId} [get]
func (h *GradeHandler) FinalGrade(c *gin.Context) {
	grade, hit, err := h.grades.FinalGrade(c.Request.Context(), c.Param("studentId"), c.Param("programId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, grade, nil, middleware.ExtractMeta(c))
}

// RecordExamScore godoc
// @Summary Record the exam score of a student
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.RecordExamScoreRequest true "Exam score payload"
// @Success 201 {object} response.Envelope
// @Router /exam-scores [post]
func (h *GradeHandler) RecordExamScore(c *gin.Context) {
	var req models.RecordExamScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	req.GraderID = actorID(c)
	record, err := h.grades.RecordExamScore(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Transcript godoc
// @Summary Download a student's transcript
// @Tags Grades
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param programId path string true "Program ID"
// @Success 200 {file} binary
// @Router /grades/{studentId}/{programId}/transcript.pdf [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	studentID, programID := c.Param("studentId"), c.Param("programId")
	body, err := h.transcripts.TranscriptPDF(c.Request.Context(), studentID, programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, "application/pdf", "transcript-"+studentID+"-"+programID+".pdf", body)
}

// Gradebook godoc
// @Summary Download the final grades of a program
// @Tags Grades
// @Produce text/csv
// @Param programId path string true "Program ID"
// @Success 200 {file} binary
// @Router /programs/{programId}/gradebook.csv [get]
func (h *GradeHandler) Gradebook(c *gin.Context) {
	programID := c.Param("programId")
	body, err := h.transcripts.GradebookCSV(c.Request.Context(), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, "text/csv", "gradebook-"+programID+".csv", body)
}
