package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/pkg/errcode"
	"github.com/xxxsen/ytqa/internal/pkg/response"
)

type ISessionManager interface {
	Load(ctx context.Context, source string, videoURL string) (*model.Session, error)
	Current(ctx context.Context) (*model.Session, error)
	Clear(ctx context.Context) error
}

type SessionHandler struct {
	sessions ISessionManager
}

func NewSessionHandler(sessions ISessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type loadSessionRequest struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

func (h *SessionHandler) Load(c *gin.Context) {
	var req loadSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Source == "" {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	sess, err := h.sessions.Load(c.Request.Context(), req.Source, req.VideoURL)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sess)
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.sessions.Current(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sess)
}

func (h *SessionHandler) Clear(c *gin.Context) {
	if err := h.sessions.Clear(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}
