package knowledge

import (
	internalhttp "leadcall_backend/internal/http"
	"leadcall_backend/platform/ai/embeddings"
	"leadcall_backend/platform/config"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/qdrant"
	"leadcall_backend/platform/validator"
)

// Module bundles the knowledge service with its HTTP surface.
type Module struct {
	Service *Service
	handler *Handler
}

// NewModule wires the embedding and vector store clients from configuration.
func NewModule(cfg *config.Config, validate *validator.Validator, log *logger.Logger) *Module {
	embedder := embeddings.NewClient(embeddings.Config{
		BaseURL: cfg.GetEmbeddingAPIURL(),
		APIKey:  cfg.GetEmbeddingAPIKey(),
	})
	store := qdrant.NewClient(qdrant.Config{
		BaseURL:    cfg.GetQdrantURL(),
		APIKey:     cfg.GetQdrantAPIKey(),
		Collection: cfg.GetQdrantCollection(),
	})

	service := NewService(embedder, store, log)
	return &Module{
		Service: service,
		handler: NewHandler(service, validate, log),
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "knowledge" }

// RegisterRoutes mounts the knowledge routes under /api/v1.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	group := ctx.V1.Group("/knowledge")
	group.POST("/documents", m.handler.IngestDocument)
}
