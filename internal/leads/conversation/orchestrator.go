// Package conversation drives one grounded conversation turn for a lead:
// retrieval, the grounding gate, generation, validation, and atomic
// persistence of the exchange.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadcall_backend/internal/events"
	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/platform/apperr"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

const retrievalTopK = 3

// Message is one role-tagged entry sent to the generation collaborator.
type Message struct {
	Role string
	Text string
}

// Retriever returns ranked supporting context for a query, or the
// NoContextSentinel when nothing relevant exists.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (string, error)
}

// Generator produces raw model text from a message history.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Store is the slice of the lead repository the orchestrator needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	AppendTurns(ctx context.Context, id uuid.UUID, params repository.AppendTurnsParams) (repository.Lead, error)
	CreateCallLog(ctx context.Context, params repository.CreateCallLogParams) (repository.CallLog, error)
}

// TurnResult is the response envelope for one processed turn.
type TurnResult struct {
	Reply           string
	Intent          string
	InterestScore   int
	CourseInterest  *string
	Status          domain.Status
	HandoffRequired bool
}

// Orchestrator processes inbound lead messages end-to-end.
type Orchestrator struct {
	store            Store
	retriever        Retriever
	generator        Generator
	bus              events.Bus
	log              *logger.Logger
	retrievalTimeout time.Duration
}

// New creates a conversation orchestrator.
func New(store Store, retriever Retriever, generator Generator, bus events.Bus, log *logger.Logger, retrievalTimeout time.Duration) *Orchestrator {
	if retrievalTimeout <= 0 {
		retrievalTimeout = 10 * time.Second
	}
	return &Orchestrator{
		store:            store,
		retriever:        retriever,
		generator:        generator,
		bus:              bus,
		log:              log,
		retrievalTimeout: retrievalTimeout,
	}
}

// ProcessMessage runs one turn. Retrieval and generation failures degrade to
// the sentinel and fallback paths; a failed persistence write is surfaced to
// the caller because a lost write is worse than a visible error.
func (o *Orchestrator) ProcessMessage(ctx context.Context, leadID uuid.UUID, message string) (TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return TurnResult{}, apperr.Validation("message must not be empty")
	}

	lead, err := o.store.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TurnResult{}, apperr.NotFound("lead not found")
		}
		return TurnResult{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	start := time.Now()
	retrieved := o.retrieve(ctx, message)

	var reply AgentReply
	if isNoContext(retrieved) {
		// Grounding gate: without supporting context the generator must not
		// run at all. The fixed handoff reply goes out instead.
		reply = handoffReply()
	} else {
		reply = o.generate(ctx, lead, message, retrieved)
	}

	userTurn := domain.Turn{Role: domain.RoleUser, Text: message, Timestamp: time.Now()}
	assistantTurn := domain.Turn{Role: domain.RoleAssistant, Text: reply.Response, Timestamp: time.Now()}

	params := repository.AppendTurnsParams{
		Turns:      []domain.Turn{userTurn, assistantTurn},
		ScoreDelta: reply.ScoreDelta,
	}
	if reply.CourseDetected != "" {
		params.CourseInterest = &reply.CourseDetected
	}
	if len(lead.Transcript) > 4 {
		summary := domain.Summarize(append(lead.Transcript, userTurn, assistantTurn))
		params.Summary = &summary
	}

	updated, err := o.store.AppendTurns(ctx, leadID, params)
	if err != nil {
		return TurnResult{}, apperr.Wrap(apperr.KindInternal, "failed to persist conversation turn", err)
	}

	o.emitCallLog(ctx, leadID, reply, userTurn, assistantTurn, int(time.Since(start).Seconds()))
	o.publishEvents(ctx, updated, reply)
	o.log.WithContext(ctx).ConversationEvent(leadID.String(), reply.Intent, reply.HandoffRequired, reply.ScoreDelta)

	return TurnResult{
		Reply:           reply.Response,
		Intent:          reply.Intent,
		InterestScore:   updated.InterestScore,
		CourseInterest:  updated.CourseInterest,
		Status:          updated.Status,
		HandoffRequired: reply.HandoffRequired,
	}, nil
}

// retrieve queries the retrieval collaborator. Any failure degrades to the
// sentinel path; a broken retriever never aborts the turn.
func (o *Orchestrator) retrieve(ctx context.Context, message string) string {
	rctx, cancel := context.WithTimeout(ctx, o.retrievalTimeout)
	defer cancel()

	retrieved, err := o.retriever.Retrieve(rctx, message, retrievalTopK)
	if err != nil {
		o.log.UpstreamDegraded("retrieval", err)
		return NoContextSentinel
	}
	return retrieved
}

// generate invokes the generation collaborator and validates its structured
// output. Malformed output is discarded entirely - never partially trusted -
// and replaced by the fixed fallback record.
func (o *Orchestrator) generate(ctx context.Context, lead repository.Lead, message, retrieved string) AgentReply {
	messages := make([]Message, 0, len(lead.Transcript)+2)
	messages = append(messages, Message{Role: domain.RoleSystem, Text: buildSystemPrompt(retrieved)})
	for _, turn := range lead.Transcript {
		messages = append(messages, Message{Role: turn.Role, Text: turn.Text})
	}
	messages = append(messages, Message{Role: domain.RoleUser, Text: wrapUserData(sanitizeMessage(message))})

	raw, err := o.generator.Generate(ctx, messages)
	if err != nil {
		o.log.UpstreamDegraded("generation", err)
		return fallbackReply()
	}

	reply, ok := ParseAgentReply(raw)
	if !ok {
		o.log.Warn("generation output failed validation, using fallback", "raw_len", len(raw))
		return fallbackReply()
	}
	return reply
}

func (o *Orchestrator) emitCallLog(ctx context.Context, leadID uuid.UUID, reply AgentReply, userTurn, assistantTurn domain.Turn, durationSeconds int) {
	params := repository.CreateCallLogParams{
		LeadID:          leadID,
		DurationSeconds: durationSeconds,
		Intents:         []string{reply.Intent},
		HandoffRequired: reply.HandoffRequired,
		RawTranscript:   userTurn.Role + ": " + userTurn.Text + "\n" + assistantTurn.Role + ": " + assistantTurn.Text,
	}
	if reply.ObjectionDetected != "" {
		params.ObjectionDetected = &reply.ObjectionDetected
	}

	// The transcript write is authoritative; a failed audit log is reported
	// but does not fail the turn.
	if _, err := o.store.CreateCallLog(ctx, params); err != nil {
		o.log.DatabaseError("create_call_log", err)
	}
}

func (o *Orchestrator) publishEvents(ctx context.Context, lead repository.Lead, reply AgentReply) {
	if o.bus == nil {
		return
	}

	o.bus.Publish(ctx, events.ConversationTurnCompleted{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		Intent:        reply.Intent,
		InterestScore: lead.InterestScore,
		Handoff:       reply.HandoffRequired,
	})

	if reply.HandoffRequired {
		reason := reply.ObjectionDetected
		if reason == "" {
			reason = "no grounding context available"
		}
		o.bus.Publish(ctx, events.LeadHandoffRequested{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			LeadName:  lead.Name,
			Phone:     lead.Phone,
			Reason:    reason,
		})
	}
}

func isNoContext(retrieved string) bool {
	trimmed := strings.TrimSpace(retrieved)
	return trimmed == "" || strings.EqualFold(trimmed, NoContextSentinel)
}
