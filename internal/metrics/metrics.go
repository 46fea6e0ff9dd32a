// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes generation counters and timings to Prometheus. A
// Collector implements generate.Observer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/paperviz/internal/generate"
	"github.com/pdiddy/paperviz/pkg/types"
)

var _ generate.Observer = (*Collector)(nil)

// Collector records generation metrics.
type Collector struct {
	Generations *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Active      prometheus.Gauge
	Fragments   *prometheus.CounterVec
}

// New registers the paperviz metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Generations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperviz_generations_total",
				Help: "Total number of generations by output kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paperviz_generation_duration_seconds",
				Help:    "Duration of generations in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),
		Active: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "paperviz_generations_active",
				Help: "Number of generations in flight",
			},
		),
		Fragments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperviz_stream_fragments_total",
				Help: "Total number of stream fragments received",
			},
			[]string{"kind"},
		),
	}
}

// GenerationStarted implements generate.Observer.
func (c *Collector) GenerationStarted(types.OutputKind) {
	c.Active.Inc()
}

// FragmentReceived implements generate.Observer.
func (c *Collector) FragmentReceived(kind types.OutputKind) {
	c.Fragments.WithLabelValues(string(kind)).Inc()
}

// GenerationFinished implements generate.Observer.
func (c *Collector) GenerationFinished(kind types.OutputKind, outcome generate.Outcome, elapsed time.Duration) {
	c.Active.Dec()
	c.Generations.WithLabelValues(string(kind), string(outcome)).Inc()
	c.Duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
