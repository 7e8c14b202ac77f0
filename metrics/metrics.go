// Package metrics wraps a hsm.Runtime's Feed outcomes with Prometheus
// counters: promauto-registered CounterVecs against an injectable
// prometheus.Registerer, defaulting to a package-level registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hsmgo/hsmgo"
)

var (
	// DefaultRegistry is the default Prometheus registry used when a
	// Collector is constructed with a nil Registerer.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with a component label so
	// metrics from this package never collide with an embedding
	// application's own collectors.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"component": "hsm"}, DefaultRegistry)
)

// Collector implements hsm.Observer, recording one feedsTotal sample per
// completed Feed call, labeled by event id and outcome.
type Collector struct {
	feedsTotal *prometheus.CounterVec
}

// NewCollector registers the collector's metrics against registerer, or
// DefaultRegisterer when registerer is nil.
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	return &Collector{
		feedsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hsm_feeds_total",
				Help: "Total number of Feed calls, labeled by event id and outcome.",
			},
			[]string{"event", "outcome"},
		),
	}
}

// OnFeed implements hsm.Observer.
func (c *Collector) OnFeed(event hsm.EventID, outcome hsm.Outcome) {
	c.feedsTotal.WithLabelValues(string(event), outcome.String()).Inc()
}
