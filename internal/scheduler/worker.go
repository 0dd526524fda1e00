package scheduler

import (
	"context"
	"fmt"

	"leadcall_backend/internal/callqueue"
	"leadcall_backend/platform/config"
	"leadcall_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes call-queue pass tasks. It owns the runner, so every pass
// in the deployment funnels through one process-wide guard.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner *callqueue.Runner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner *callqueue.Runner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskCallQueuePass, w.handleCallQueuePass)

	return w, nil
}

func (w *Worker) handleCallQueuePass(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallQueuePassPayload(task)
	if err != nil {
		return err
	}

	result, err := w.runner.RunPass(ctx)
	if err != nil {
		w.log.Error("call queue pass failed", "triggered_by", payload.TriggeredBy, "error", err)
		return err
	}
	if result.Skipped {
		w.log.Info("call queue pass skipped, previous pass still active", "triggered_by", payload.TriggeredBy)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
