package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the sync, outbox and inbox pipelines.
type PipelineMetrics struct {
	syncedRecords   *prometheus.CounterVec
	lastSyncSuccess prometheus.Gauge
	outboxItems     *prometheus.CounterVec
	inboxSwept      prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics. A nil registerer yields
// a no-op recorder.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	synced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_records_upserted_total",
		Help:      "Records upserted from the events provider.",
	}, []string{"kind"})
	lastSync := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful sync.",
	})
	outboxItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_items_total",
		Help:      "Outbox delivery attempts by result.",
	}, []string{"result"})
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inbox_expired_deleted_total",
		Help:      "Expired idempotency records removed.",
	})
	reg.MustRegister(synced, lastSync, outboxItems, swept)
	return &PipelineMetrics{
		syncedRecords:   synced,
		lastSyncSuccess: lastSync,
		outboxItems:     outboxItems,
		inboxSwept:      swept,
	}
}

// ObserveSync records a successful sync pass.
func (p *PipelineMetrics) ObserveSync(events, places int, at time.Time) {
	if p == nil || p.syncedRecords == nil {
		return
	}
	p.syncedRecords.WithLabelValues("events").Add(float64(events))
	p.syncedRecords.WithLabelValues("places").Add(float64(places))
	p.lastSyncSuccess.Set(float64(at.Unix()))
}

// ObserveOutbox records the outcome of one drain.
func (p *PipelineMetrics) ObserveOutbox(sent, failed int) {
	if p == nil || p.outboxItems == nil {
		return
	}
	p.outboxItems.WithLabelValues("sent").Add(float64(sent))
	p.outboxItems.WithLabelValues("failed").Add(float64(failed))
}

func (p *PipelineMetrics) ObserveInboxSweep(deleted int64) {
	if p == nil || p.inboxSwept == nil {
		return
	}
	p.inboxSwept.Add(float64(deleted))
}
