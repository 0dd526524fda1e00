// Package leads wires the lead pipeline: repository, service, conversation
// orchestrator and HTTP surface.
package leads

import (
	"context"

	"leadcall_backend/internal/events"
	internalhttp "leadcall_backend/internal/http"
	"leadcall_backend/internal/knowledge"
	"leadcall_backend/internal/leads/conversation"
	"leadcall_backend/internal/leads/handler"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/internal/leads/service"
	"leadcall_backend/internal/leads/storage"
	"leadcall_backend/platform/ai/gemini"
	"leadcall_backend/platform/config"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the lead pipeline behind the HTTP Module interface.
type Module struct {
	Repository *repository.Repository
	Service    *service.Service
	handler    *handler.Handler
}

// geminiGenerator adapts the gemini client to the conversation port.
type geminiGenerator struct {
	client *gemini.Client
}

func (g geminiGenerator) Generate(ctx context.Context, messages []conversation.Message) (string, error) {
	mapped := make([]gemini.Message, len(messages))
	for i, msg := range messages {
		mapped[i] = gemini.Message{Role: msg.Role, Text: msg.Text}
	}
	return g.client.Generate(ctx, mapped)
}

// NewModule wires the lead pipeline from configuration. Object storage is
// optional; without it the archive endpoint reports unavailable.
func NewModule(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, knowledgeSvc *knowledge.Service, bus events.Bus, validate *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)

	geminiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.GetGeminiAPIKey(),
		Model:   cfg.GetGeminiModel(),
		Timeout: cfg.GetGenerationTimeout(),
	})
	if err != nil {
		return nil, err
	}

	orchestrator := conversation.New(
		repo,
		knowledgeSvc,
		geminiGenerator{client: geminiClient},
		bus,
		log,
		cfg.GetRetrievalTimeout(),
	)

	var archiver service.Archiver
	if cfg.IsMinIOEnabled() {
		store, err := storage.NewArchiveStore(cfg)
		if err != nil {
			return nil, err
		}
		archiver = store
	} else {
		log.Warn("object storage not configured, export archiving disabled")
	}

	return &Module{
		Repository: repo,
		Service:    svc,
		handler:    handler.New(svc, orchestrator, archiver, validate, log),
	}, nil
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the leads routes under /api/v1.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	group := ctx.V1.Group("/leads")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/metrics", m.handler.Metrics)
	group.POST("/import", m.handler.Import)
	group.GET("/export", m.handler.Export)
	group.POST("/export/archive", m.handler.ArchiveExport)
	group.GET("/:id", m.handler.Get)
	group.POST("/:id/messages", m.handler.PostMessage)
	group.GET("/:id/calls", m.handler.CallLogs)
}
