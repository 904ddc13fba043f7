package metrics

import "github.com/prometheus/client_golang/prometheus"

// CampaignMetrics exposes counters/histograms for bulk delivery runs.
type CampaignMetrics struct {
	outcomesTotal    *prometheus.CounterVec
	imageFallbacks   *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	progress         *prometheus.GaugeVec
}

func NewCampaignMetrics(reg prometheus.Registerer) *CampaignMetrics {
	m := &CampaignMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wacampaign",
			Subsystem: "delivery",
			Name:      "outcomes_total",
			Help:      "Recipient outcomes by status and reason",
		}, []string{"status", "reason", "with_image"}),
		imageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wacampaign",
			Subsystem: "delivery",
			Name:      "image_fallback_total",
			Help:      "Image deliveries abandoned for text, by reason",
		}, []string{"reason"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wacampaign",
			Subsystem: "delivery",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent per recipient including the inter-message delay",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 120},
		}, []string{"status"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wacampaign",
			Subsystem: "run",
			Name:      "recipients",
			Help:      "Recipients in the current run by state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomesTotal, m.imageFallbacks, m.dispatchDuration, m.progress)
	return m
}

func (m *CampaignMetrics) ObserveOutcome(status, reason string, withImage bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if withImage {
		label = "true"
	}
	m.outcomesTotal.WithLabelValues(status, reason, label).Inc()
	m.dispatchDuration.WithLabelValues(status).Observe(seconds)
}

func (m *CampaignMetrics) ObserveImageFallback(reason string) {
	if m == nil {
		return
	}
	m.imageFallbacks.WithLabelValues(reason).Inc()
}

// SetProgress publishes the run's running totals.
func (m *CampaignMetrics) SetProgress(total, attempted, succeeded, failed int) {
	if m == nil {
		return
	}
	m.progress.WithLabelValues("total").Set(float64(total))
	m.progress.WithLabelValues("attempted").Set(float64(attempted))
	m.progress.WithLabelValues("succeeded").Set(float64(succeeded))
	m.progress.WithLabelValues("failed").Set(float64(failed))
}
