package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kbagent/internal/app"
	"kbagent/internal/embedding"
	"kbagent/internal/model"
	"kbagent/internal/platform/rabbitmq"
	"kbagent/internal/transport/http/response"
)

// ManualHandler owns the manual registry endpoints used by the document
// collaborator: registering extracted text, attaching curated renditions,
// listing, deleting, and queueing re-embeds.
type ManualHandler struct {
	ingestService *app.IngestService
	publisher     *rabbitmq.ReindexPublisher
}

type CreateManualRequest struct {
	Title     string `json:"title" binding:"required"`
	Text      string `json:"text" binding:"required"`
	SourceURL string `json:"source_url"`
}

type ProcessedManualRequest struct {
	Title    string             `json:"title"`
	Markdown string             `json:"markdown" binding:"required"`
	Images   []ManualImageInput `json:"images"`
}

type ManualImageInput struct {
	URL      string `json:"url" binding:"required"`
	AltText  string `json:"alt_text"`
	Position int    `json:"position"`
}

func NewManualHandler(ingestService *app.IngestService, publisher *rabbitmq.ReindexPublisher) *ManualHandler {
	return &ManualHandler{
		ingestService: ingestService,
		publisher:     publisher,
	}
}

func (h *ManualHandler) Create(c *gin.Context) {
	var req CreateManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.ingestService.IngestDocument(c.Request.Context(), app.IngestDocumentInput{
		Title:     req.Title,
		Text:      req.Text,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "title and text must not be empty")
		case errors.Is(err, embedding.ErrUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, "embedding backend unavailable")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *ManualHandler) List(c *gin.Context) {
	manuals, err := h.ingestService.ListManuals(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list manuals failed")
		return
	}
	response.OK(c, manuals)
}

func (h *ManualHandler) Delete(c *gin.Context) {
	manualID, err := parseUintParam(c, "id")
	if err != nil || manualID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid manual id")
		return
	}
	if err := h.ingestService.DeleteManual(c.Request.Context(), manualID); err != nil {
		if errors.Is(err, app.ErrManualNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeManualNotFound, "manual not found")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete manual failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_manual_id": manualID})
}

func (h *ManualHandler) CreateProcessed(c *gin.Context) {
	manualID, err := parseUintParam(c, "id")
	if err != nil || manualID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid manual id")
		return
	}

	var req ProcessedManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	images := make([]model.ManualImage, 0, len(req.Images))
	for i, img := range req.Images {
		position := img.Position
		if position == 0 {
			position = i
		}
		images = append(images, model.ManualImage{
			URL:      img.URL,
			AltText:  img.AltText,
			Position: position,
		})
	}

	pm, err := h.ingestService.IngestProcessedManual(c.Request.Context(), manualID, app.ProcessedManualInput{
		Title:    req.Title,
		Markdown: req.Markdown,
		Images:   images,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "markdown must not be empty")
		case errors.Is(err, app.ErrManualNotFound):
			response.Error(c, http.StatusNotFound, response.CodeManualNotFound, "manual not found")
		case errors.Is(err, embedding.ErrUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeEmbeddingUnavailable, "embedding backend unavailable")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest processed manual failed")
		}
		return
	}
	response.OK(c, pm)
}

// Reindex enqueues an asynchronous re-embed of one manual. The actual
// embedding happens in the queue worker, so a slow backend never blocks
// this request.
func (h *ManualHandler) Reindex(c *gin.Context) {
	manualID, err := parseUintParam(c, "id")
	if err != nil || manualID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid manual id")
		return
	}
	if err := h.publisher.PublishManual(c.Request.Context(), manualID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "enqueue reindex failed")
		return
	}
	response.OK(c, gin.H{"queued_manual_id": manualID})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 32)
	return uint(u), err
}
