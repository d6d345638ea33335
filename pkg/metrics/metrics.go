// Package metrics exposes Prometheus metrics for reconciliation, triggers
// and telemetry delivery.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "onboarding"

// Collector implements the observer interfaces of the workflow, dashboard
// and telemetry packages.
type Collector struct {
	registry *prometheus.Registry

	reconciles       *prometheus.CounterVec
	reconcileLatency *prometheus.HistogramVec
	effects          *prometheus.CounterVec
	triggers         *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	storeDropped     prometheus.GaugeFunc
}

// NewCollector registers the onboarding metrics plus the Go and process
// collectors on a fresh registry. dropped, when set, reports store change
// notifications lost to full queues.
func NewCollector(dropped func() float64) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliations by workflow and outcome.",
		}, []string{"workflow", "outcome"}),
		reconcileLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Time spent in one reconciliation.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"workflow"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_effects_applied_total",
			Help:      "Aggregate effects applied by workflow.",
		}, []string{"workflow"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_triggers_total",
			Help:      "Reconciliation requests by trigger source.",
		}, []string{"source"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_deliveries_total",
			Help:      "Handler invocations on the notification bus.",
		}, []string{"kind"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.reconciles,
		c.reconcileLatency,
		c.effects,
		c.triggers,
		c.deliveries,
	)

	if dropped != nil {
		c.storeDropped = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_notifications_dropped",
			Help:      "Store change notifications dropped on full watcher queues.",
		}, dropped)
		c.registry.MustRegister(c.storeDropped)
	}

	return c
}

func (c *Collector) ObserveReconcile(workflow, outcome string, elapsed time.Duration) {
	c.reconciles.WithLabelValues(workflow, outcome).Inc()
	c.reconcileLatency.WithLabelValues(workflow).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveEffect(workflow string) {
	c.effects.WithLabelValues(workflow).Inc()
}

func (c *Collector) ObserveTrigger(source string) {
	c.triggers.WithLabelValues(source).Inc()
}

func (c *Collector) ObserveDelivery(kind string) {
	c.deliveries.WithLabelValues(kind).Inc()
}

// Registry returns the registry the collector registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
