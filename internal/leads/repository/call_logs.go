package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CallLog is an immutable audit record for one processed turn or call attempt.
type CallLog struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	DurationSeconds   int
	Intents           []string
	ObjectionDetected *string
	HandoffRequired   bool
	RawTranscript     string
	CreatedAt         time.Time
}

type CreateCallLogParams struct {
	LeadID            uuid.UUID
	DurationSeconds   int
	Intents           []string
	ObjectionDetected *string
	HandoffRequired   bool
	RawTranscript     string
}

func (r *Repository) CreateCallLog(ctx context.Context, params CreateCallLogParams) (CallLog, error) {
	intents := params.Intents
	if intents == nil {
		intents = []string{}
	}

	var log CallLog
	err := r.pool.QueryRow(ctx, `
		INSERT INTO call_logs (lead_id, duration_seconds, intents, objection_detected, handoff_required, raw_transcript)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, lead_id, duration_seconds, intents, objection_detected, handoff_required, raw_transcript, created_at
	`,
		params.LeadID, params.DurationSeconds, intents, params.ObjectionDetected,
		params.HandoffRequired, params.RawTranscript,
	).Scan(
		&log.ID, &log.LeadID, &log.DurationSeconds, &log.Intents, &log.ObjectionDetected,
		&log.HandoffRequired, &log.RawTranscript, &log.CreatedAt,
	)
	if err != nil {
		return CallLog{}, err
	}

	return log, nil
}

func (r *Repository) ListCallLogs(ctx context.Context, leadID uuid.UUID) ([]CallLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, duration_seconds, intents, objection_detected, handoff_required, raw_transcript, created_at
		FROM call_logs
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]CallLog, 0)
	for rows.Next() {
		var log CallLog
		if err := rows.Scan(
			&log.ID, &log.LeadID, &log.DurationSeconds, &log.Intents, &log.ObjectionDetected,
			&log.HandoffRequired, &log.RawTranscript, &log.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return logs, nil
}
