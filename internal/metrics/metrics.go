// Package metrics exposes ingestion counters as a custom
// prometheus.Collector, the same shape as the teacher's
// PrometheusCollector: internal state lives on the struct, Collect()
// builds prometheus.Metric values from it on every scrape rather than
// registering a fixed set of vectors up front.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// kindCounters tracks received/dropped/handlerError counts for one
// message kind (event, review, available).
type kindCounters struct {
	received     int64
	dropped      int64
	handlerError int64
}

// Collector is the Prometheus collector the lifecycle orchestrator
// registers once at boot. It is safe for concurrent use by the bus
// workers and the Prometheus scrape goroutine.
type Collector struct {
	mu      sync.RWMutex
	byKind  map[string]*kindCounters
	depthFn func() int
}

// New constructs a Collector. depthFn, if non-nil, is polled on every
// scrape to report the bus's current queue depth (spec.md §4.4's
// backpressure observability requirement).
func New(depthFn func() int) *Collector {
	return &Collector{
		byKind:  map[string]*kindCounters{"event": {}, "review": {}, "available": {}},
		depthFn: depthFn,
	}
}

func (c *Collector) counters(kind string) *kindCounters {
	c.mu.RLock()
	kc, ok := c.byKind[kind]
	c.mu.RUnlock()
	if ok {
		return kc
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if kc, ok := c.byKind[kind]; ok {
		return kc
	}
	kc = &kindCounters{}
	c.byKind[kind] = kc
	return kc
}

// IncReceived records one successfully decoded and normalized message of
// the given kind.
func (c *Collector) IncReceived(kind string) {
	atomic.AddInt64(&c.counters(kind).received, 1)
}

// IncDropped records one message dropped before reaching a handler
// (undecodable payload, unknown topic, failed validation). Messages the
// bus drops for lack of a listener are logged, not counted here.
func (c *Collector) IncDropped(kind string) {
	atomic.AddInt64(&c.counters(kind).dropped, 1)
}

// IncHandlerError records one persistence handler failure for the kind.
func (c *Collector) IncHandlerError(kind string) {
	atomic.AddInt64(&c.counters(kind).handlerError, 1)
}

var (
	receivedDesc = prometheus.NewDesc(
		"frigate_ingestor_messages_received_total",
		"Normalized messages received, by kind.",
		[]string{"kind"}, nil,
	)
	droppedDesc = prometheus.NewDesc(
		"frigate_ingestor_messages_dropped_total",
		"Messages dropped before reaching a handler, by kind.",
		[]string{"kind"}, nil,
	)
	handlerErrorDesc = prometheus.NewDesc(
		"frigate_ingestor_handler_errors_total",
		"Persistence handler failures, by kind.",
		[]string{"kind"}, nil,
	)
	queueDepthDesc = prometheus.NewDesc(
		"frigate_ingestor_bus_queue_depth",
		"Number of messages queued ahead of the bus worker pool.",
		nil, nil,
	)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- receivedDesc
	ch <- droppedDesc
	ch <- handlerErrorDesc
	ch <- queueDepthDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for kind, kc := range c.byKind {
		ch <- prometheus.MustNewConstMetric(receivedDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&kc.received)), kind)
		ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&kc.dropped)), kind)
		ch <- prometheus.MustNewConstMetric(handlerErrorDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&kc.handlerError)), kind)
	}

	if c.depthFn != nil {
		ch <- prometheus.MustNewConstMetric(queueDepthDesc, prometheus.GaugeValue, float64(c.depthFn()))
	}
}
