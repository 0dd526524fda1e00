// Package callqueue advances pending leads through bounded-retry call
// attempts. One pass at a time, at most PassBatchSize leads per pass.
package callqueue

import (
	"context"
	"sync/atomic"

	"leadcall_backend/internal/events"
	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the slice of the lead repository the runner needs.
type Store interface {
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]repository.Lead, error)
	MarkCalling(ctx context.Context, id uuid.UUID) (int, error)
	ApplyOutcome(ctx context.Context, id uuid.UUID, next domain.Status) error
}

// PassResult reports what one queue pass did.
type PassResult struct {
	Skipped   bool
	Processed int
	Completed int
	Retried   int
	Failed    int
}

// Runner executes call queue passes. The reentrancy guard is process-wide:
// a trigger arriving while a pass is active is a no-op, not queued.
type Runner struct {
	store    Store
	resolver Resolver
	bus      events.Bus
	log      *logger.Logger
	active   atomic.Bool
}

// NewRunner creates a call queue runner.
func NewRunner(store Store, resolver Resolver, bus events.Bus, log *logger.Logger) *Runner {
	return &Runner{
		store:    store,
		resolver: resolver,
		bus:      bus,
		log:      log,
	}
}

// RunPass selects up to PassBatchSize pending leads (oldest first) and
// advances each through one call attempt. A failure on one lead never aborts
// the rest of the batch. The guard is released on every exit path.
func (r *Runner) RunPass(ctx context.Context) (PassResult, error) {
	if !r.active.CompareAndSwap(false, true) {
		r.log.Debug("call queue pass already active, skipping trigger")
		return PassResult{Skipped: true}, nil
	}
	defer r.active.Store(false)

	leads, err := r.store.ListByStatus(ctx, domain.StatusPending, domain.PassBatchSize)
	if err != nil {
		return PassResult{}, err
	}

	var result PassResult
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}

		status, processed := r.processLead(ctx, lead)
		if !processed {
			continue
		}
		result.Processed++
		switch status {
		case domain.StatusCompleted:
			result.Completed++
		case domain.StatusPending:
			result.Retried++
		default:
			result.Failed++
		}
	}

	r.log.QueueEvent(result.Processed, result.Completed, result.Retried, result.Failed)
	if r.bus != nil && result.Processed > 0 {
		r.bus.Publish(ctx, events.CallQueuePassCompleted{
			BaseEvent: events.NewBaseEvent(),
			Processed: result.Processed,
			Completed: result.Completed,
			Retried:   result.Retried,
			Failed:    result.Failed,
		})
	}

	return result, nil
}

// processLead runs one call attempt and returns the lead's resulting status.
// A processing error after the attempt started fails the lead and is logged;
// the batch continues either way.
func (r *Runner) processLead(ctx context.Context, lead repository.Lead) (domain.Status, bool) {
	attempts, err := r.store.MarkCalling(ctx, lead.ID)
	if err != nil {
		// Lost the race for this lead (another writer moved it) or the
		// store failed; this pass leaves it alone.
		r.log.Warn("could not mark lead calling", "lead_id", lead.ID, "error", err)
		return lead.Status, false
	}

	outcome, err := r.resolver.Resolve(ctx, lead)
	if err != nil {
		r.log.Error("outcome resolution failed", "lead_id", lead.ID, "error", err)
		return r.failLead(ctx, lead), true
	}

	next, err := domain.Resolve(outcome, attempts)
	if err != nil {
		r.log.Error("unmapped call outcome", "lead_id", lead.ID, "outcome", outcome, "error", err)
		return r.failLead(ctx, lead), true
	}

	if err := r.store.ApplyOutcome(ctx, lead.ID, next); err != nil {
		r.log.DatabaseError("apply_outcome", err)
		return r.failLead(ctx, lead), true
	}

	return next, true
}

func (r *Runner) failLead(ctx context.Context, lead repository.Lead) domain.Status {
	if err := r.store.ApplyOutcome(ctx, lead.ID, domain.StatusFailed); err != nil {
		r.log.DatabaseError("fail_lead", err)
	}
	return domain.StatusFailed
}
