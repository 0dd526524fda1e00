// Package handler exposes the lead pipeline over HTTP.
package handler

import (
	"net/http"

	"leadcall_backend/internal/leads/conversation"
	"leadcall_backend/internal/leads/service"
	"leadcall_backend/internal/leads/transport"
	"leadcall_backend/platform/httpkit"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the leads API.
type Handler struct {
	service      *service.Service
	orchestrator *conversation.Orchestrator
	archiver     service.Archiver
	validate     *validator.Validator
	log          *logger.Logger
}

// New creates a leads handler. archiver may be nil when object storage is
// not configured; the archive endpoint then responds 503.
func New(svc *service.Service, orchestrator *conversation.Orchestrator, archiver service.Archiver, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		service:      svc,
		orchestrator: orchestrator,
		archiver:     archiver,
		validate:     validate,
		log:          log,
	}
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	lead, err := h.service.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}

	leads, err := h.service.List(c.Request.Context(), query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": leads, "count": len(leads)})
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// PostMessage handles POST /leads/:id/messages, one conversation turn.
func (h *Handler) PostMessage(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	var req transport.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.orchestrator.ProcessMessage(c.Request.Context(), id, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.MessageResponse{
		Reply:           result.Reply,
		Intent:          result.Intent,
		InterestScore:   result.InterestScore,
		CourseInterest:  result.CourseInterest,
		Status:          string(result.Status),
		HandoffRequired: result.HandoffRequired,
	})
}

// CallLogs handles GET /leads/:id/calls.
func (h *Handler) CallLogs(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	logs, err := h.service.CallLogs(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"call_logs": logs, "count": len(logs)})
}

// Import handles POST /leads/import with a CSV body or multipart file field.
func (h *Handler) Import(c *gin.Context) {
	body := c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	result, err := h.service.ImportCSV(c.Request.Context(), body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Export handles GET /leads/export?format=csv|json.
func (h *Handler) Export(c *gin.Context) {
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="leads.csv"`)
		if _, err := h.service.ExportCSV(c.Request.Context(), c.Writer); err != nil {
			h.log.Error("csv export failed", "error", err)
		}
	case "json":
		c.Header("Content-Type", "application/json")
		if _, err := h.service.ExportJSON(c.Request.Context(), c.Writer); err != nil {
			h.log.Error("json export failed", "error", err)
		}
	default:
		httpkit.Error(c, http.StatusBadRequest, "format must be csv or json", nil)
	}
}

// ArchiveExport handles POST /leads/export/archive.
func (h *Handler) ArchiveExport(c *gin.Context) {
	result, err := h.service.ArchiveExport(c.Request.Context(), h.archiver)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Metrics handles GET /leads/metrics.
func (h *Handler) Metrics(c *gin.Context) {
	metrics, err := h.service.Metrics(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, metrics)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}
