package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/response"
)

type batchService interface {
	CreateBatch(ctx context.Context, req models.CreateBatchRequest, actorID string) (*models.Batch, error)
	ListBatches(ctx context.Context, programID string) ([]models.Batch, error)
}

// BatchHandler exposes cohort endpoints.
type BatchHandler struct {
	batches batchService
}

// NewBatchHandler constructs handler.
func NewBatchHandler(batches batchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Create godoc
// @Summary Create a batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body models.CreateBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.CreateBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	batch, err := h.batches.CreateBatch(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// List godoc
// @Summary List batches
// @Tags Batches
// @Produce json
// @Param program_id query string false "Program"
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batches.ListBatches(c.Request.Context(), c.Query("program_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}
