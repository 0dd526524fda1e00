package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"leadcall_backend/internal/events"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSender struct {
	mu      sync.Mutex
	to      string
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.to = to
	f.subject = subject
	f.body = body
	return f.err
}

func TestHandoffEventTriggersEmail(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewHandoffNotifier(sender, "sales@example.com", logger.New("development"))

	bus := events.NewInMemoryBus(logger.New("development"))
	notifier.Register(bus)

	err := bus.PublishSync(context.Background(), events.LeadHandoffRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		LeadName:  "Jamie Rivera",
		Phone:     "+14155550100",
		Reason:    "no grounding context available",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.calls != 1 {
		t.Fatalf("expected 1 email, got %d", sender.calls)
	}
	if sender.to != "sales@example.com" {
		t.Fatalf("expected sales inbox, got %q", sender.to)
	}
	if !strings.Contains(sender.subject, "Jamie Rivera") {
		t.Fatalf("subject missing lead name: %q", sender.subject)
	}
	if !strings.Contains(sender.body, "+14155550100") || !strings.Contains(sender.body, "no grounding context available") {
		t.Fatalf("body missing details: %q", sender.body)
	}
}

func TestHandoffDeliveryFailureIsContained(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	notifier := NewHandoffNotifier(sender, "sales@example.com", logger.New("development"))

	err := notifier.handle(context.Background(), events.LeadHandoffRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		LeadName:  "Jamie Rivera",
	})
	if err == nil {
		t.Fatalf("handler should report the delivery error to the bus")
	}
}

func TestHandoffIgnoresOtherEvents(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewHandoffNotifier(sender, "sales@example.com", logger.New("development"))

	if err := notifier.handle(context.Background(), events.LeadCreated{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("unexpected email for unrelated event")
	}
}
