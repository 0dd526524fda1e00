package knowledge

import (
	"net/http"

	"leadcall_backend/platform/httpkit"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// IngestDocumentRequest is the payload for adding a document to the corpus.
type IngestDocumentRequest struct {
	Source string `json:"source" validate:"required,max=255"`
	Text   string `json:"text" validate:"required"`
}

// Handler exposes knowledge ingestion over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validator
	log      *logger.Logger
}

// NewHandler creates a knowledge handler.
func NewHandler(service *Service, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validate,
		log:      log,
	}
}

// IngestDocument handles POST /knowledge/documents.
func (h *Handler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	chunks, err := h.service.Ingest(c.Request.Context(), Document{
		Source: req.Source,
		Text:   req.Text,
	})
	if err != nil {
		h.log.Error("document ingestion failed", "source", req.Source, "error", err)
		httpkit.Error(c, http.StatusBadGateway, "failed to ingest document", nil)
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{
		"source": req.Source,
		"chunks": chunks,
	})
}
