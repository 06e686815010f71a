// Package metrics holds the prometheus collectors of the gallery server.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/upload"
)

// Metrics is a set of collectors bound to one registry.
type Metrics struct {
	reg            *prometheus.Registry
	uploads        *prometheus.CounterVec
	uploadDuration prometheus.Histogram
	events         *prometheus.CounterVec
	feedUp         prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_uploads_total",
			Help: "Finished uploads by outcome (complete, or the state they failed in).",
		}, []string{"outcome"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gallery_upload_duration_seconds",
			Help:    "Time from validation to a terminal upload state.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gallery_realtime_events_total",
			Help: "Realtime events by kind and merge result.",
		}, []string{"kind", "result"}),
		feedUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gallery_feed_up",
			Help: "1 while the realtime feed subscription is live.",
		}),
	}
	m.reg.MustRegister(
		m.uploads, m.uploadDuration, m.events, m.feedUp,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// UploadTracker returns a transition hook that records outcomes and durations.
// The hook is safe for concurrent uploads.
func (m *Metrics) UploadTracker(now func() time.Time) func(upload.Transition) {
	var (
		mu     sync.Mutex
		starts = make(map[string]time.Time)
	)
	return func(t upload.Transition) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case t.To == upload.Validating:
			starts[t.Token] = now()
		case t.To.Terminal():
			outcome := "complete"
			if t.To == upload.Failed {
				outcome = "failed_" + t.From.String()
			}
			m.uploads.WithLabelValues(outcome).Inc()
			if s, ok := starts[t.Token]; ok {
				m.uploadDuration.Observe(now().Sub(s).Seconds())
			}
			delete(starts, t.Token)
		}
	}
}

// ObserveEvent counts one realtime merge; it matches gallery.WithObserver.
func (m *Metrics) ObserveEvent(kind model.EventKind, res gallery.Result) {
	m.events.WithLabelValues(string(kind), string(res)).Inc()
}

// FeedState records feed liveness; it matches gallery.SuperviseConfig.OnState.
func (m *Metrics) FeedState(up bool) {
	if up {
		m.feedUp.Set(1)
		return
	}
	m.feedUp.Set(0)
}
