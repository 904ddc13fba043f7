package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresJournal stores runs in campaign_runs and outcomes in campaign_outcomes.
type PostgresJournal struct {
	db db
}

func NewPostgresJournal(db db) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) StartRun(ctx context.Context, start campaign.Start) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO campaign_runs (id, total, start_index, next_index, started_at)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		start.RunID, start.Total, start.StartIndex, start.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal: insert run: %w", err)
	}
	return nil
}

func (j *PostgresJournal) RecordOutcome(ctx context.Context, ev campaign.Event) error {
	e := entryFromEvent(ev)
	_, err := j.db.Exec(ctx, `
		INSERT INTO campaign_outcomes
			(run_id, recipient_index, row_number, identifier, status, reason, image_reason, with_image, duration_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.RunID, e.Index, e.Row, e.Identifier, e.Status, e.Reason, e.ImageReason, e.WithImage, e.DurationMS, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: insert outcome: %w", err)
	}
	return nil
}

func (j *PostgresJournal) FinishRun(ctx context.Context, s campaign.Summary) error {
	tag, err := j.db.Exec(ctx, `
		UPDATE campaign_runs
		SET attempted = $2, succeeded = $3, failed = $4, text_fallbacks = $5,
			next_index = $6, aborted = $7, interrupted = $8, finished_at = $9
		WHERE id = $1`,
		s.RunID, s.Attempted, s.Succeeded, s.Failed, s.TextFallbacks,
		s.NextIndex, s.Aborted, s.Interrupted, s.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("journal: finish run: run %s not found", s.RunID)
	}
	return nil
}

// ResumePoint reports where the most recent run stopped. ok is false when
// there is no run or the latest one completed.
func (j *PostgresJournal) ResumePoint(ctx context.Context) (runID string, nextIndex int, ok bool, err error) {
	var incomplete bool
	err = j.db.QueryRow(ctx, `
		SELECT id, next_index, (aborted OR interrupted) FROM campaign_runs
		WHERE finished_at IS NOT NULL
		ORDER BY started_at DESC
		LIMIT 1`,
	).Scan(&runID, &nextIndex, &incomplete)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("journal: resume point: %w", err)
	}
	return runID, nextIndex, incomplete, nil
}
