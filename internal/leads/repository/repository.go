package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadcall_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("lead not found")
	ErrDuplicate         = errors.New("a lead with this phone or email already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const uniqueViolationCode = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Email          string
	Status         domain.Status
	Attempts       int
	InterestScore  int
	CourseInterest *string
	Summary        *string
	Transcript     []domain.Turn
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreateLeadParams struct {
	Name           string
	Phone          string
	Email          string
	CourseInterest *string
}

const leadColumns = `id, name, phone, email, status, attempts, interest_score,
		course_interest, summary, transcript, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var rawTranscript []byte
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.Status, &lead.Attempts,
		&lead.InterestScore, &lead.CourseInterest, &lead.Summary, &rawTranscript,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	if err := json.Unmarshal(rawTranscript, &lead.Transcript); err != nil {
		return Lead{}, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, phone, email, course_interest)
		VALUES ($1, $2, $3, $4)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.CourseInterest,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Lead{}, ErrDuplicate
		}
		return Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// ListByStatus returns leads in the given status ordered oldest-first, so the
// call queue serves leads in FIFO order.
func (r *Repository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

type ListParams struct {
	Status *domain.Status
	Limit  int
	Offset int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var (
		rows pgx.Rows
		err  error
	)
	if params.Status != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+leadColumns+`
			FROM leads WHERE status = $1
			ORDER BY created_at ASC
			LIMIT $2 OFFSET $3
		`, *params.Status, limit, params.Offset)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+leadColumns+`
			FROM leads
			ORDER BY created_at ASC
			LIMIT $1 OFFSET $2
		`, limit, params.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

// MarkCalling moves a pending lead into calling and increments its attempt
// counter in the same statement, so the counter advances exactly once per
// transition and never regresses. Leads in any other status are rejected.
func (r *Repository) MarkCalling(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $2, attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING attempts
	`, id, domain.StatusCalling, domain.StatusPending).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidTransition
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// ApplyOutcome moves a calling lead to its resolved status. The guard on the
// current status rejects transitions the state machine does not allow, even
// from misbehaving call sites.
func (r *Repository) ApplyOutcome(ctx context.Context, id uuid.UUID, next domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, next, domain.StatusCalling)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// AppendTurnsParams carries everything one conversation turn persists.
type AppendTurnsParams struct {
	Turns          []domain.Turn
	ScoreDelta     int
	CourseInterest *string
	Summary        *string
}

// AppendTurns appends transcript entries and applies the field updates in ONE
// conditional update. The jsonb concatenation happens inside the statement,
// so concurrent turns on the same lead both land: there is no window where a
// read-modify-write could drop another writer's entries. The score is clamped
// in SQL for the same reason.
func (r *Repository) AppendTurns(ctx context.Context, id uuid.UUID, params AppendTurnsParams) (Lead, error) {
	encoded, err := json.Marshal(params.Turns)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to encode turns: %w", err)
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET transcript = transcript || $2::jsonb,
			interest_score = LEAST($5, GREATEST($6, interest_score + $3)),
			course_interest = COALESCE($4, course_interest),
			summary = COALESCE($7, summary),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, encoded, params.ScoreDelta, params.CourseInterest,
		domain.MaxInterestScore, domain.MinInterestScore, params.Summary,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// Metrics returns the number of leads per status.
func (r *Repository) Metrics(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*) FROM leads GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		metrics[status] = count
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return metrics, nil
}
