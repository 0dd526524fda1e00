package repository

import (
	"context"

	"leadcall_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
}

// CallStateWriter advances leads through the call-attempt state machine.
type CallStateWriter interface {
	MarkCalling(ctx context.Context, id uuid.UUID) (int, error)
	ApplyOutcome(ctx context.Context, id uuid.UUID, next domain.Status) error
}

// TurnWriter persists conversation turns atomically.
type TurnWriter interface {
	AppendTurns(ctx context.Context, id uuid.UUID, params AppendTurnsParams) (Lead, error)
}

// CallLogWriter records immutable per-turn audit logs.
type CallLogWriter interface {
	CreateCallLog(ctx context.Context, params CreateCallLogParams) (CallLog, error)
}

// CallLogReader reads the per-lead call audit trail.
type CallLogReader interface {
	ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLog, error)
}

// MetricsReader reports pipeline counts grouped by status.
type MetricsReader interface {
	Metrics(ctx context.Context) (map[domain.Status]int, error)
}
