package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"leadcall_backend/internal/events"
	"leadcall_backend/internal/leads/conversation"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

type handoffLeadStore struct {
	lead repository.Lead
}

func (s *handoffLeadStore) GetByID(_ context.Context, _ uuid.UUID) (repository.Lead, error) {
	return s.lead, nil
}

func (s *handoffLeadStore) AppendTurns(_ context.Context, _ uuid.UUID, _ repository.AppendTurnsParams) (repository.Lead, error) {
	return s.lead, nil
}

func (s *handoffLeadStore) CreateCallLog(_ context.Context, _ repository.CreateCallLogParams) (repository.CallLog, error) {
	return repository.CallLog{}, nil
}

type noContextRetriever struct{}

func (noContextRetriever) Retrieve(_ context.Context, _ string, _ int) (string, error) {
	return conversation.NoContextSentinel, nil
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(_ context.Context, _ []conversation.Message) (string, error) {
	g.calls++
	return "", nil
}

// An ungrounded turn must end with an email at the sales inbox when the
// orchestrator and the notifier share one bus, as they do in the api process.
func TestUngroundedTurnDeliversHandoffEmail(t *testing.T) {
	log := logger.New("development")

	sender := &fakeSender{}
	bus := events.NewInMemoryBus(log)
	NewHandoffNotifier(sender, "sales@example.com", log).Register(bus)

	store := &handoffLeadStore{lead: repository.Lead{
		ID:    uuid.New(),
		Name:  "Jamie Rivera",
		Phone: "+14155550100",
	}}
	generator := &countingGenerator{}
	orch := conversation.New(store, noContextRetriever{}, generator, bus, log, 0)

	result, err := orch.ProcessMessage(context.Background(), store.lead.ID, "do you offer evening classes?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HandoffRequired {
		t.Fatalf("ungrounded turn should require handoff")
	}
	if generator.calls != 0 {
		t.Fatalf("generator must not run without supporting context")
	}

	// Events are dispatched asynchronously; wait for the handler to land.
	deadline := time.Now().Add(2 * time.Second)
	for {
		sender.mu.Lock()
		calls, to, body := sender.calls, sender.to, sender.body
		sender.mu.Unlock()

		if calls > 0 {
			if to != "sales@example.com" {
				t.Fatalf("expected sales inbox, got %q", to)
			}
			if !strings.Contains(body, "Jamie Rivera") || !strings.Contains(body, "+14155550100") {
				t.Fatalf("email body missing lead details: %q", body)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("handoff email was never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
