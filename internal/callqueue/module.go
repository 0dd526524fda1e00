package callqueue

import (
	"context"
	"net/http"

	internalhttp "leadcall_backend/internal/http"
	"leadcall_backend/platform/httpkit"
	"leadcall_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// PassTrigger requests a queue pass; the scheduler client implements it by
// enqueuing the pass task.
type PassTrigger interface {
	TriggerCallQueuePass(ctx context.Context, triggeredBy string) error
}

// Module exposes the manual call-queue trigger. The trigger only enqueues a
// pass task; the worker decides whether a pass actually runs.
type Module struct {
	trigger PassTrigger
	log     *logger.Logger
}

// NewModule creates the call-queue HTTP module.
func NewModule(trigger PassTrigger, log *logger.Logger) *Module {
	return &Module{
		trigger: trigger,
		log:     log,
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "callqueue" }

// RegisterRoutes mounts the call-queue routes under /api/v1.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	ctx.V1.POST("/call-queue/run", m.run)
}

func (m *Module) run(c *gin.Context) {
	if err := m.trigger.TriggerCallQueuePass(c.Request.Context(), "manual"); err != nil {
		m.log.Error("failed to enqueue manual call queue pass", "error", err)
		httpkit.Error(c, http.StatusServiceUnavailable, "failed to enqueue call queue pass", nil)
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "enqueued"})
}
