package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
	"github.com/wolfman30/wa-campaign-sender/internal/observability/metrics"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

func TestHealthz(t *testing.T) {
	router := NewRouter(NewTracker(), nil, logging.Discard())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestProgressFollowsRun(t *testing.T) {
	tracker := NewTracker()
	router := NewRouter(tracker, nil, logging.Discard())
	ctx := context.Background()

	snapshot := func() Snapshot {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/progress", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var s Snapshot
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
		return s
	}

	assert.Equal(t, StateIdle, snapshot().State)

	tracker.CampaignStarted(ctx, campaign.Start{RunID: "run-1", Total: 5, StartIndex: 2, StartedAt: time.Now()})
	tracker.RecipientDone(ctx, campaign.Event{
		Record:  recipients.Record{Index: 2},
		Outcome: automation.Outcome{Status: automation.StatusSentTextFallback, ImageReason: "preview_timeout"},
	})
	tracker.RecipientDone(ctx, campaign.Event{
		Record:  recipients.Record{Index: 3},
		Outcome: automation.Outcome{Status: automation.StatusFailed, Reason: automation.ReasonContactNotFound},
	})

	s := snapshot()
	assert.Equal(t, StateRunning, s.State)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.Attempted)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.TextFallbacks)
	assert.Equal(t, 4, s.NextIndex)
	assert.Equal(t, automation.ReasonContactNotFound, s.LastReason)

	tracker.CampaignFinished(ctx, campaign.Summary{RunID: "run-1", Attempted: 2, Succeeded: 1, Failed: 1, NextIndex: 4, Interrupted: true})
	assert.Equal(t, StateInterrupted, snapshot().State)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCampaignMetrics(reg)
	m.ObserveOutcome("sent", "", true, 1.2)

	router := NewRouter(NewTracker(), reg, logging.Discard())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "wacampaign_delivery_outcomes_total"))
}

func TestMetricsEndpointDisabled(t *testing.T) {
	router := NewRouter(NewTracker(), nil, logging.Discard())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServerStartAndShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewRouter(NewTracker(), nil, nil), logging.Discard())
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Shutdown(context.Background()))
}
