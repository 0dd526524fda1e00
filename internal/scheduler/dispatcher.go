package scheduler

import (
	"context"
	"time"

	"leadcall_backend/platform/config"
	"leadcall_backend/platform/logger"
)

// PassDispatcher enqueues one call-queue pass task per interval tick. It
// never runs a pass itself; overlap control lives in the worker.
type PassDispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewPassDispatcher(client *Client, cfg config.CallQueueConfig, log *logger.Logger) *PassDispatcher {
	interval := cfg.GetCallQueuePassInterval()
	if interval <= 0 {
		interval = time.Minute
	}

	return &PassDispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}
}

func (d *PassDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.client.TriggerCallQueuePass(ctx, TriggerPeriodic); err != nil {
			d.log.Warn("failed to enqueue call queue pass", "error", err)
		}
	}
}
