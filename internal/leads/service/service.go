// Package service implements the lead pipeline use cases behind the HTTP
// handlers.
package service

import (
	"context"
	"errors"
	"strings"

	"leadcall_backend/internal/events"
	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/internal/leads/transport"
	"leadcall_backend/platform/apperr"
	"leadcall_backend/platform/logger"
	"leadcall_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the slice of the lead repository the service needs.
type Store interface {
	repository.LeadReader
	repository.LeadWriter
	repository.CallLogReader
	repository.MetricsReader
}

// Service owns lead registration, listing, import/export and metrics.
type Service struct {
	repo Store
	bus  events.Bus
	log  *logger.Logger
}

// New creates a lead service.
func New(repo Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
	}
}

// Create registers a new lead in pending status. The phone number is
// normalized to E.164 and the email lowercased before the uniqueness check,
// so formatting variants of the same contact collide.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		Name:  strings.TrimSpace(req.Name),
		Phone: phone.NormalizeE164(req.Phone),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if course := strings.TrimSpace(req.CourseInterest); course != "" {
		params.CourseInterest = &course
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return transport.LeadResponse{}, apperr.Conflict("a lead with this phone or email already exists")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Source:    "api",
		})
	}

	return transport.ToLeadResponse(lead), nil
}

// Get returns one lead by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return transport.ToLeadResponse(lead), nil
}

// List returns leads, optionally filtered by status.
func (s *Service) List(ctx context.Context, query transport.ListLeadsQuery) ([]transport.LeadResponse, error) {
	params := repository.ListParams{
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Status != "" {
		status := domain.Status(query.Status)
		if !domain.IsKnownStatus(status) {
			return nil, apperr.Validation("unknown status " + query.Status)
		}
		params.Status = &status
	}

	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, transport.ToLeadResponse(lead))
	}
	return out, nil
}

// Metrics reports pipeline counts grouped by status.
func (s *Service) Metrics(ctx context.Context) (transport.MetricsResponse, error) {
	counts, err := s.repo.Metrics(ctx)
	if err != nil {
		return transport.MetricsResponse{}, apperr.Wrap(apperr.KindInternal, "failed to compute metrics", err)
	}
	return transport.ToMetricsResponse(counts), nil
}

// CallLogs returns the immutable call history of one lead.
func (s *Service) CallLogs(ctx context.Context, id uuid.UUID) ([]repository.CallLog, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	logs, err := s.repo.ListCallLogs(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list call logs", err)
	}
	return logs, nil
}
