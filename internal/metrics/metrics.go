// Package metrics exposes the process Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Appends          *prometheus.CounterVec
	FlushesOK        *prometheus.CounterVec
	FlushesFailed    *prometheus.CounterVec
	SnapshotsCorrupt *prometheus.CounterVec

	PurchasesVerified  prometheus.Counter
	DuplicatePurchases prometheus.Counter
	RoyaltyMinorUnits  prometheus.Counter
	FeedPublishFailed  prometheus.Counter

	TelemetryConsumed prometheus.Counter
	TelemetryRejected prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	appends := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "growbase_store_appends_total"}, []string{"kind"})
	flushOK := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "growbase_store_flushes_total"}, []string{"kind"})
	flushFail := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "growbase_store_flush_failures_total"}, []string{"kind"})
	corrupt := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "growbase_store_snapshot_corrupt_total"}, []string{"kind"})

	verified := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_purchases_verified_total"})
	dupes := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_purchases_duplicate_total"})
	royalty := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_royalty_minor_units_total"})
	feedFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_feed_publish_failures_total"})

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_telemetry_consumed_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "growbase_telemetry_rejected_total"})

	r.MustRegister(appends, flushOK, flushFail, corrupt, verified, dupes, royalty, feedFail, consumed, rejected)
	return &Registry{
		reg:                r,
		Appends:            appends,
		FlushesOK:          flushOK,
		FlushesFailed:      flushFail,
		SnapshotsCorrupt:   corrupt,
		PurchasesVerified:  verified,
		DuplicatePurchases: dupes,
		RoyaltyMinorUnits:  royalty,
		FeedPublishFailed:  feedFail,
		TelemetryConsumed:  consumed,
		TelemetryRejected:  rejected,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// store.Observer implementation.

func (r *Registry) RecordAppended(kind string)  { r.Appends.WithLabelValues(kind).Inc() }
func (r *Registry) FlushOK(kind string)         { r.FlushesOK.WithLabelValues(kind).Inc() }
func (r *Registry) FlushFailed(kind string)     { r.FlushesFailed.WithLabelValues(kind).Inc() }
func (r *Registry) SnapshotCorrupt(kind string) { r.SnapshotsCorrupt.WithLabelValues(kind).Inc() }
