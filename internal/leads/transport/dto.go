// Package transport defines the request and response shapes of the leads API.
package transport

import (
	"time"

	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// CreateLeadRequest is the payload for registering a new lead.
type CreateLeadRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Phone          string `json:"phone" validate:"required,max=32"`
	Email          string `json:"email" validate:"required,email,max=255"`
	CourseInterest string `json:"course_interest,omitempty" validate:"max=255"`
}

// PostMessageRequest is an inbound conversation message for a lead.
type PostMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ListLeadsQuery carries the query parameters of GET /leads.
type ListLeadsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// TurnResponse is one transcript entry.
type TurnResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// LeadResponse is the API shape of a lead.
type LeadResponse struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email"`
	Status         string         `json:"status"`
	Attempts       int            `json:"attempts"`
	InterestScore  int            `json:"interest_score"`
	CourseInterest *string        `json:"course_interest,omitempty"`
	Summary        *string        `json:"summary,omitempty"`
	Transcript     []TurnResponse `json:"transcript"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// MessageResponse is the result of one conversation turn.
type MessageResponse struct {
	Reply           string  `json:"reply"`
	Intent          string  `json:"intent"`
	InterestScore   int     `json:"interest_score"`
	CourseInterest  *string `json:"course_interest,omitempty"`
	Status          string  `json:"status"`
	HandoffRequired bool    `json:"handoff_required"`
}

// ImportResultResponse summarizes a CSV import.
type ImportResultResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// MetricsResponse reports pipeline counts per status.
type MetricsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// ArchiveResponse reports where an export snapshot was stored.
type ArchiveResponse struct {
	Bucket string `json:"bucket"`
	Object string `json:"object"`
	Leads  int    `json:"leads"`
}

// ToLeadResponse maps a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	transcript := make([]TurnResponse, 0, len(lead.Transcript))
	for _, turn := range lead.Transcript {
		transcript = append(transcript, TurnResponse{
			Role:      string(turn.Role),
			Text:      turn.Text,
			Timestamp: turn.Timestamp,
		})
	}

	return LeadResponse{
		ID:             lead.ID,
		Name:           lead.Name,
		Phone:          lead.Phone,
		Email:          lead.Email,
		Status:         string(lead.Status),
		Attempts:       lead.Attempts,
		InterestScore:  lead.InterestScore,
		CourseInterest: lead.CourseInterest,
		Summary:        lead.Summary,
		Transcript:     transcript,
		CreatedAt:      lead.CreatedAt,
		UpdatedAt:      lead.UpdatedAt,
	}
}

// ToMetricsResponse maps per-status counts to the API shape.
func ToMetricsResponse(counts map[domain.Status]int) MetricsResponse {
	byStatus := make(map[string]int, len(counts))
	total := 0
	for status, count := range counts {
		byStatus[string(status)] = count
		total += count
	}
	return MetricsResponse{Total: total, ByStatus: byStatus}
}
