// Package metrics exports save and load outcomes as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/plus3/keepsake/event"
	"github.com/plus3/keepsake/load"
	"github.com/plus3/keepsake/save"
	"github.com/plus3/keepsake/snapshot"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "keepsake"

// Collector holds the pipeline metrics.
type Collector struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Entities   *prometheus.GaugeVec
	Bytes      prometheus.Gauge
	Dangling   prometheus.Counter
}

// New creates the collector and registers it with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Save and load operations by outcome and error kind",
		}, []string{"operation", "status", "kind"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time to run a save or load pipeline",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation", "status"}),
		Entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities in the most recent successful save or load",
		}, []string{"operation"}),
		Bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_size_bytes",
			Help:      "Size of the most recent saved snapshot",
		}),
		Dangling: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_references_total",
			Help:      "Saved entity references that had no entity in their snapshot",
		}),
	}
	reg.MustRegister(c.Operations, c.Duration, c.Entities, c.Bytes, c.Dangling)
	return c
}

// Observe subscribes the collector to every terminal pipeline event on bus.
func (c *Collector) Observe(bus *event.Bus) {
	event.Subscribe(bus, func(ev *save.Saved) {
		c.Operations.WithLabelValues("save", "success", "").Inc()
		c.Duration.WithLabelValues("save", "success").Observe(ev.Duration.Seconds())
		c.Entities.WithLabelValues("save").Set(float64(len(ev.Entities)))
		c.Bytes.Set(float64(ev.Bytes))
	})
	event.Subscribe(bus, func(ev *save.Failed) {
		c.Operations.WithLabelValues("save", "error", kind(ev.Err)).Inc()
		c.Duration.WithLabelValues("save", "error").Observe(ev.Duration.Seconds())
	})
	event.Subscribe(bus, func(ev *load.Loaded) {
		c.Operations.WithLabelValues("load", "success", "").Inc()
		c.Duration.WithLabelValues("load", "success").Observe(ev.Duration.Seconds())
		c.Entities.WithLabelValues("load").Set(float64(len(ev.Entities)))
		c.Dangling.Add(float64(len(ev.Dangling)))
	})
	event.Subscribe(bus, func(ev *load.Failed) {
		c.Operations.WithLabelValues("load", "error", kind(ev.Err)).Inc()
		c.Duration.WithLabelValues("load", "error").Observe(ev.Duration.Seconds())
	})
}

func kind(err error) string {
	var e *snapshot.Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown"
}
