package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
)

const (
	runKeyPrefix = "campaign_run:"
	lastRunKey   = "campaign_run:last"
)

// RedisJournal keeps outcomes in a per-run list and the latest summary under a
// fixed key. Everything expires after ttl.
type RedisJournal struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisJournal(client *redis.Client, ttl time.Duration) *RedisJournal {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisJournal{
		redis:  client,
		tracer: otel.Tracer("wacampaign.internal.journal.redis"),
		ttl:    ttl,
	}
}

func outcomesKey(runID string) string { return runKeyPrefix + runID + ":outcomes" }
func summaryKey(runID string) string  { return runKeyPrefix + runID + ":summary" }

func (j *RedisJournal) StartRun(ctx context.Context, start campaign.Start) error {
	if start.RunID == "" {
		return errors.New("journal: run id required")
	}
	ctx, span := j.tracer.Start(ctx, "journal.redis.start_run")
	defer span.End()

	data, err := json.Marshal(campaign.Summary{
		RunID:      start.RunID,
		Total:      start.Total,
		StartIndex: start.StartIndex,
		NextIndex:  start.StartIndex,
		StartedAt:  start.StartedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("journal: marshal run: %w", err)
	}
	if err := j.redis.Set(ctx, summaryKey(start.RunID), data, j.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("journal: start run: %w", err)
	}
	return nil
}

func (j *RedisJournal) RecordOutcome(ctx context.Context, ev campaign.Event) error {
	ctx, span := j.tracer.Start(ctx, "journal.redis.record_outcome")
	defer span.End()

	data, err := json.Marshal(entryFromEvent(ev))
	if err != nil {
		return fmt.Errorf("journal: marshal outcome: %w", err)
	}
	key := outcomesKey(ev.RunID)
	pipe := j.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("journal: record outcome: %w", err)
	}
	return nil
}

func (j *RedisJournal) FinishRun(ctx context.Context, summary campaign.Summary) error {
	ctx, span := j.tracer.Start(ctx, "journal.redis.finish_run")
	defer span.End()

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("journal: marshal summary: %w", err)
	}
	pipe := j.redis.TxPipeline()
	pipe.Set(ctx, summaryKey(summary.RunID), data, j.ttl)
	pipe.Set(ctx, lastRunKey, data, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// Outcomes returns every recorded outcome of runID in order.
func (j *RedisJournal) Outcomes(ctx context.Context, runID string) ([]Entry, error) {
	raw, err := j.redis.LRange(ctx, outcomesKey(runID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("journal: list outcomes: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LastSummary returns the summary of the most recently finished run, or false
// when none is stored.
func (j *RedisJournal) LastSummary(ctx context.Context) (campaign.Summary, bool, error) {
	raw, err := j.redis.Get(ctx, lastRunKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return campaign.Summary{}, false, nil
		}
		return campaign.Summary{}, false, fmt.Errorf("journal: last summary: %w", err)
	}
	var s campaign.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return campaign.Summary{}, false, fmt.Errorf("journal: decode summary: %w", err)
	}
	return s, true, nil
}
