package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbagent/internal/app"
	"kbagent/internal/transport/http/response"
)

// ConversationHandler exposes the turn log of a session and lets the
// answer-generation collaborator record its replies.
type ConversationHandler struct {
	askService *app.AskService
}

type RecordAnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

func NewConversationHandler(askService *app.AskService) *ConversationHandler {
	return &ConversationHandler{askService: askService}
}

func (h *ConversationHandler) History(c *gin.Context) {
	sessionID := c.Param("session_id")
	turns, err := h.askService.History(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load history failed")
		}
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "turns": turns})
}

func (h *ConversationHandler) RecordAnswer(c *gin.Context) {
	sessionID := c.Param("session_id")

	var req RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.askService.RecordAnswer(c.Request.Context(), sessionID, req.Text); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "text must not be empty")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "record answer failed")
		}
		return
	}
	response.OK(c, gin.H{"session_id": sessionID})
}
