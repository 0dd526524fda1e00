package callqueue

import (
	"context"

	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
)

// Resolver decides the outcome of one call attempt. Real telephony lives
// behind this port; the engine only consumes the outcome signal.
type Resolver interface {
	Resolve(ctx context.Context, lead repository.Lead) (domain.Outcome, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, lead repository.Lead) (domain.Outcome, error)

// Resolve calls the underlying function.
func (f ResolverFunc) Resolve(ctx context.Context, lead repository.Lead) (domain.Outcome, error) {
	return f(ctx, lead)
}

// StubResolver is a deterministic stand-in used until a dialing integration
// exists: every attempt resolves to no_answer, which exercises the retry
// path end-to-end without placing calls.
type StubResolver struct{}

// Resolve always reports no_answer.
func (StubResolver) Resolve(context.Context, repository.Lead) (domain.Outcome, error) {
	return domain.OutcomeNoAnswer, nil
}
