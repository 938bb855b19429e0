// Package metrics exposes ascending's periodic stats dump (spec.md
// §4.5.1: requests, forwarded count, candidate pool size) as Prometheus
// gauges, polled on scrape rather than pushed, so a slow or absent
// scraper never backs up onto the bootstrap attempt itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tolelom/latticenode/ascending"
)

// StatsSource is the read side of ascending.Attempt metrics needs: just
// enough to poll counters on scrape, so this package never has to import
// ascending.Attempt's concurrency internals.
type StatsSource interface {
	Stats() ascending.Stats
}

// Collector adapts a StatsSource to the prometheus.Collector interface
// via three GaugeFunc metrics, computed fresh on every Collect call.
type Collector struct {
	requests  prometheus.GaugeFunc
	forwarded prometheus.GaugeFunc
	poolSize  prometheus.GaugeFunc
}

// NewCollector builds a Collector reading from src. Register it with a
// prometheus.Registry (or the default one) before serving /metrics.
func NewCollector(src StatsSource) *Collector {
	return &Collector{
		requests: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "latticenode",
			Subsystem: "ascending",
			Name:      "requests_total",
			Help:      "Cumulative bulk_pull requests issued by the ascending bootstrap attempt.",
		}, func() float64 { return float64(src.Stats().Requests) }),
		forwarded: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "latticenode",
			Subsystem: "ascending",
			Name:      "forwarded_total",
			Help:      "Cumulative accounts forwarded for priority re-selection.",
		}, func() float64 { return float64(src.Stats().Forwarded) }),
		poolSize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "latticenode",
			Subsystem: "ascending",
			Name:      "selection_pool_size",
			Help:      "Number of unblocked accounts currently eligible for random selection.",
		}, func() float64 { return float64(src.Stats().PoolSize) }),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.forwarded.Describe(ch)
	c.poolSize.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.forwarded.Collect(ch)
	c.poolSize.Collect(ch)
}
