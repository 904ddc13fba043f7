package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

var testStarted = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testEvent(index int, status automation.OutcomeStatus, reason string) campaign.Event {
	return campaign.Event{
		RunID: "run-1",
		Record: recipients.Record{
			Index:      index,
			Row:        index + 2,
			Identifier: "+919555611880",
		},
		Outcome: automation.Outcome{Status: status, Reason: reason, Duration: 1500 * time.Millisecond},
		At:      testStarted.Add(time.Minute),
	}
}

func TestRedisJournalLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	j := NewRedisJournal(client, time.Hour)
	ctx := context.Background()

	if err := j.StartRun(ctx, campaign.Start{RunID: "run-1", Total: 3, StartIndex: 1, StartedAt: testStarted}); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := j.RecordOutcome(ctx, testEvent(1, automation.StatusSent, "")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.RecordOutcome(ctx, testEvent(2, automation.StatusFailed, automation.ReasonContactNotFound)); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := j.Outcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("outcomes: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Reason != automation.ReasonContactNotFound || entries[1].Row != 4 || entries[1].DurationMS != 1500 {
		t.Fatalf("unexpected entry %+v", entries[1])
	}
	if ttl := mr.TTL(outcomesKey("run-1")); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %s", ttl)
	}

	if _, ok, err := j.LastSummary(ctx); err != nil || ok {
		t.Fatalf("expected no finished run yet, ok=%v err=%v", ok, err)
	}

	summary := campaign.Summary{RunID: "run-1", Total: 3, StartIndex: 1, Attempted: 2, Succeeded: 1, Failed: 1, NextIndex: 3}
	if err := j.FinishRun(ctx, summary); err != nil {
		t.Fatalf("finish: %v", err)
	}
	last, ok, err := j.LastSummary(ctx)
	if err != nil || !ok {
		t.Fatalf("expected last summary, ok=%v err=%v", ok, err)
	}
	if last.Attempted != 2 || last.NextIndex != 3 {
		t.Fatalf("unexpected summary %+v", last)
	}
}

func TestRedisJournalRequiresRunID(t *testing.T) {
	mr := miniredis.RunT(t)
	j := NewRedisJournal(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	if err := j.StartRun(context.Background(), campaign.Start{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestNewRedisJournalNilClient(t *testing.T) {
	if NewRedisJournal(nil, time.Hour) != nil {
		t.Fatalf("expected nil journal without a client")
	}
}

func TestPostgresJournalLifecycle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	j := NewPostgresJournal(mock)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO campaign_runs").
		WithArgs("run-1", 3, 0, testStarted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO campaign_outcomes").
		WithArgs("run-1", 0, 2, "+919555611880", "sent", "", "", false, int64(1500), testStarted.Add(time.Minute)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	finished := testStarted.Add(2 * time.Minute)
	mock.ExpectExec("UPDATE campaign_runs").
		WithArgs("run-1", 1, 1, 0, 0, 1, false, true, finished).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := j.StartRun(ctx, campaign.Start{RunID: "run-1", Total: 3, StartedAt: testStarted}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.RecordOutcome(ctx, testEvent(0, automation.StatusSent, "")); err != nil {
		t.Fatalf("record: %v", err)
	}
	summary := campaign.Summary{RunID: "run-1", Attempted: 1, Succeeded: 1, NextIndex: 1, Interrupted: true, FinishedAt: finished}
	if err := j.FinishRun(ctx, summary); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresJournalFinishUnknownRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("UPDATE campaign_runs").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = NewPostgresJournal(mock).FinishRun(context.Background(), campaign.Summary{RunID: "missing"})
	if err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func TestPostgresJournalResumePoint(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	j := NewPostgresJournal(mock)

	mock.ExpectQuery("SELECT id, next_index").
		WillReturnRows(pgxmock.NewRows([]string{"id", "next_index", "incomplete"}).AddRow("run-9", 42, true))
	runID, next, ok, err := j.ResumePoint(context.Background())
	if err != nil || !ok || runID != "run-9" || next != 42 {
		t.Fatalf("unexpected resume point %s %d %v %v", runID, next, ok, err)
	}

	mock.ExpectQuery("SELECT id, next_index").WillReturnError(pgx.ErrNoRows)
	_, _, ok, err = j.ResumePoint(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no resume point, ok=%v err=%v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

type failingJournal struct{ calls int }

func (f *failingJournal) StartRun(context.Context, campaign.Start) error {
	f.calls++
	return errors.New("down")
}
func (f *failingJournal) RecordOutcome(context.Context, campaign.Event) error {
	f.calls++
	return errors.New("down")
}
func (f *failingJournal) FinishRun(context.Context, campaign.Summary) error {
	f.calls++
	return errors.New("down")
}

func TestObserverSwallowsJournalErrors(t *testing.T) {
	fj := &failingJournal{}
	obs := NewObserver(Multi{fj, fj}, logging.Discard())
	ctx := context.Background()
	obs.CampaignStarted(ctx, campaign.Start{RunID: "run-1"})
	obs.RecipientDone(ctx, testEvent(0, automation.StatusSent, ""))
	obs.CampaignFinished(ctx, campaign.Summary{RunID: "run-1"})
	if fj.calls != 6 {
		t.Fatalf("expected every journal to be called, got %d", fj.calls)
	}
}
