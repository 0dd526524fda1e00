package notification

import (
	"context"
	"fmt"

	"leadcall_backend/internal/events"
	"leadcall_backend/platform/logger"
)

// HandoffNotifier emails the sales inbox whenever a conversation requests a
// human takeover. Delivery failures are logged only; the conversation that
// raised the handoff has already completed.
type HandoffNotifier struct {
	sender Sender
	inbox  string
	log    *logger.Logger
}

// NewHandoffNotifier creates a notifier delivering to the given inbox.
func NewHandoffNotifier(sender Sender, inbox string, log *logger.Logger) *HandoffNotifier {
	return &HandoffNotifier{
		sender: sender,
		inbox:  inbox,
		log:    log,
	}
}

// Register subscribes the notifier to handoff events on the bus.
func (n *HandoffNotifier) Register(bus events.Bus) {
	bus.Subscribe(events.LeadHandoffRequested{}.EventName(), events.HandlerFunc(n.handle))
}

func (n *HandoffNotifier) handle(ctx context.Context, event events.Event) error {
	handoff, ok := event.(events.LeadHandoffRequested)
	if !ok {
		return nil
	}

	subject := fmt.Sprintf("Lead handoff requested: %s", handoff.LeadName)
	body := fmt.Sprintf(
		"A conversation has been flagged for human follow-up.\n\n"+
			"Lead:   %s\n"+
			"Phone:  %s\n"+
			"Reason: %s\n\n"+
			"Lead ID: %s\n",
		handoff.LeadName, handoff.Phone, handoff.Reason, handoff.LeadID,
	)

	if err := n.sender.Send(ctx, n.inbox, subject, body); err != nil {
		n.log.Error("handoff notification failed", "lead_id", handoff.LeadID, "error", err)
		return err
	}

	n.log.Info("handoff notification sent", "lead_id", handoff.LeadID, "inbox", n.inbox)
	return nil
}
