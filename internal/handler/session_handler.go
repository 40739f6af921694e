package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/response"
)

type sessionService interface {
	CreateSession(ctx context.Context, batchID string, req models.CreateSessionRequest, actorID string) (*models.Session, error)
	TodaysSessions(ctx context.Context, batchID string) ([]models.SessionView, error)
}

// SessionHandler exposes live batch session endpoints.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create godoc
// @Summary Schedule a live session for a batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /batches/{id}/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.sessions.CreateSession(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Today godoc
// @Summary Today's sessions of a batch with live and join flags
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/sessions/today [get]
func (h *SessionHandler) Today(c *gin.Context) {
	sessions, err := h.sessions.TodaysSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}
