// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadcall_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// ConversationTurnCompleted is published after a conversation turn has been
// persisted and its call log emitted.
type ConversationTurnCompleted struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	Intent        string    `json:"intent"`
	InterestScore int       `json:"interestScore"`
	Handoff       bool      `json:"handoff"`
}

func (e ConversationTurnCompleted) EventName() string { return "leads.conversation.turn_completed" }

// LeadHandoffRequested is published when a turn ends with a handoff flag so
// a human can take over the conversation.
type LeadHandoffRequested struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	LeadName string    `json:"leadName"`
	Phone    string    `json:"phone"`
	Reason   string    `json:"reason"`
}

func (e LeadHandoffRequested) EventName() string { return "leads.handoff.requested" }

// =============================================================================
// Call Queue Events
// =============================================================================

// CallQueuePassCompleted is published after a call queue pass finishes.
type CallQueuePassCompleted struct {
	BaseEvent
	Processed int `json:"processed"`
	Completed int `json:"completed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

func (e CallQueuePassCompleted) EventName() string { return "callqueue.pass.completed" }
