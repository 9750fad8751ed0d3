package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbagent/internal/app"
	"kbagent/internal/embedding"
	"kbagent/internal/transport/http/response"
)

// AskHandler serves the question endpoint. It returns retrieval output for
// the answer-generation collaborator; it never generates answers itself.
type AskHandler struct {
	askService       *app.AskService
	supportCenterURL string
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
}

func NewAskHandler(askService *app.AskService, supportCenterURL string) *AskHandler {
	return &AskHandler{
		askService:       askService,
		supportCenterURL: supportCenterURL,
	}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.askService.Ask(c.Request.Context(), app.AskInput{
		Question:  req.Question,
		SessionID: req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question must not be empty")
		case errors.Is(err, embedding.ErrUnavailable):
			// The embedding backend is down, so retrieval cannot run at
			// all. Point the caller at the support center instead of
			// answering without grounding.
			response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable,
				"retrieval is temporarily unavailable, please consult the support center: "+h.supportCenterURL)
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}

	response.OK(c, result)
}
