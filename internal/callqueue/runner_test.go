package callqueue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

// queueStore is an in-memory Store honoring the repository's transition guards.
type queueStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]*repository.Lead
	order []uuid.UUID

	listErr error
	block   chan struct{} // when set, ListByStatus blocks until closed
}

func newQueueStore(leads ...*repository.Lead) *queueStore {
	s := &queueStore{leads: make(map[uuid.UUID]*repository.Lead)}
	for _, lead := range leads {
		s.leads[lead.ID] = lead
		s.order = append(s.order, lead.ID)
	}
	return s
}

func (s *queueStore) ListByStatus(_ context.Context, status domain.Status, limit int) ([]repository.Lead, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	ids := append([]uuid.UUID(nil), s.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.leads[ids[i]].CreatedAt.Before(s.leads[ids[j]].CreatedAt)
	})

	var out []repository.Lead
	for _, id := range ids {
		if s.leads[id].Status == status {
			out = append(out, *s.leads[id])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *queueStore) MarkCalling(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.Status != domain.StatusPending {
		return 0, repository.ErrInvalidTransition
	}
	lead.Status = domain.StatusCalling
	lead.Attempts++
	return lead.Attempts, nil
}

func (s *queueStore) ApplyOutcome(_ context.Context, id uuid.UUID, next domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.Status != domain.StatusCalling {
		return repository.ErrInvalidTransition
	}
	lead.Status = next
	return nil
}

func pendingLead(attempts int, createdAt time.Time) *repository.Lead {
	return &repository.Lead{
		ID:        uuid.New(),
		Status:    domain.StatusPending,
		Attempts:  attempts,
		CreatedAt: createdAt,
	}
}

func outcome(o domain.Outcome) Resolver {
	return ResolverFunc(func(context.Context, repository.Lead) (domain.Outcome, error) {
		return o, nil
	})
}

func newRunner(store Store, resolver Resolver) *Runner {
	return NewRunner(store, resolver, nil, logger.New("development"))
}

func TestRunPassProcessesAtMostBatchSize(t *testing.T) {
	base := time.Now()
	var leads []*repository.Lead
	for i := 0; i < 7; i++ {
		leads = append(leads, pendingLead(0, base.Add(time.Duration(i)*time.Minute)))
	}
	store := newQueueStore(leads...)

	result, err := newRunner(store, outcome(domain.OutcomeCompleted)).RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != domain.PassBatchSize {
		t.Fatalf("expected %d processed, got %d", domain.PassBatchSize, result.Processed)
	}

	// The two youngest leads are untouched and wait for the next trigger.
	untouched := 0
	for _, lead := range leads {
		if lead.Status == domain.StatusPending && lead.Attempts == 0 {
			untouched++
		}
	}
	if untouched != 2 {
		t.Fatalf("expected 2 untouched leads, got %d", untouched)
	}
	for _, lead := range leads[5:] {
		if lead.Attempts != 0 {
			t.Fatalf("expected youngest leads to be left for the next pass")
		}
	}
}

func TestRunPassNoAnswerBelowLimitRequeues(t *testing.T) {
	lead := pendingLead(1, time.Now())
	store := newQueueStore(lead)

	result, err := newRunner(store, outcome(domain.OutcomeNoAnswer)).RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Retried != 1 {
		t.Fatalf("expected 1 retried, got %+v", result)
	}
	if lead.Attempts != 2 {
		t.Fatalf("expected attempts=2, got %d", lead.Attempts)
	}
	if lead.Status != domain.StatusPending {
		t.Fatalf("expected status=pending, got %q", lead.Status)
	}
}

func TestRunPassNoAnswerAtLimitFails(t *testing.T) {
	lead := pendingLead(2, time.Now())
	store := newQueueStore(lead)

	result, err := newRunner(store, outcome(domain.OutcomeNoAnswer)).RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}
	if lead.Attempts != 3 {
		t.Fatalf("expected attempts=3, got %d", lead.Attempts)
	}
	if lead.Status != domain.StatusFailed {
		t.Fatalf("expected status=failed, got %q", lead.Status)
	}
}

func TestRunPassResolverErrorFailsLeadButContinuesBatch(t *testing.T) {
	base := time.Now()
	first := pendingLead(0, base)
	second := pendingLead(0, base.Add(time.Minute))
	store := newQueueStore(first, second)

	calls := 0
	resolver := ResolverFunc(func(_ context.Context, lead repository.Lead) (domain.Outcome, error) {
		calls++
		if lead.ID == first.ID {
			return "", errors.New("dialer exploded")
		}
		return domain.OutcomeCompleted, nil
	})

	result, err := newRunner(store, resolver).RunPass(context.Background())
	if err != nil {
		t.Fatalf("one lead's failure must not abort the pass: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both leads attempted, got %d", calls)
	}
	if first.Status != domain.StatusFailed {
		t.Fatalf("expected failing lead marked failed, got %q", first.Status)
	}
	if second.Status != domain.StatusCompleted {
		t.Fatalf("expected second lead completed, got %q", second.Status)
	}
	if result.Failed != 1 || result.Completed != 1 {
		t.Fatalf("unexpected pass result: %+v", result)
	}
}

func TestRunPassConcurrentTriggerIsSkipped(t *testing.T) {
	lead := pendingLead(0, time.Now())
	store := newQueueStore(lead)
	store.block = make(chan struct{})

	runner := newRunner(store, outcome(domain.OutcomeCompleted))

	firstDone := make(chan PassResult)
	go func() {
		result, _ := runner.RunPass(context.Background())
		firstDone <- result
	}()

	// Wait for the first pass to take the guard, then trigger again.
	deadline := time.After(2 * time.Second)
	for !runner.active.Load() {
		select {
		case <-deadline:
			t.Fatalf("first pass never took the guard")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	second, err := runner.RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Skipped {
		t.Fatalf("expected overlapping trigger to be skipped")
	}

	close(store.block)
	first := <-firstDone
	if first.Skipped || first.Processed != 1 {
		t.Fatalf("unexpected first pass result: %+v", first)
	}
}

func TestRunPassGuardReleasedAfterStoreError(t *testing.T) {
	store := newQueueStore()
	store.listErr = errors.New("db down")
	runner := newRunner(store, outcome(domain.OutcomeCompleted))

	if _, err := runner.RunPass(context.Background()); err == nil {
		t.Fatalf("expected error from failing store")
	}

	// The guard must be released even on the error path.
	store.listErr = nil
	result, err := runner.RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Skipped {
		t.Fatalf("guard was not released after a failed pass")
	}
}

func TestRunPassEachLeadTouchedOncePerPass(t *testing.T) {
	// With the no-answer outcome a lead returns to pending during the pass;
	// it must still be attempted only once within that pass.
	lead := pendingLead(0, time.Now())
	store := newQueueStore(lead)

	result, err := newRunner(store, outcome(domain.OutcomeNoAnswer)).RunPass(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("expected exactly one attempt, got %d", result.Processed)
	}
	if lead.Attempts != 1 {
		t.Fatalf("expected attempts=1 after one pass, got %d", lead.Attempts)
	}
}
