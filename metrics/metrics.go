// Package metrics provides the data-availability node's metrics primitives,
// backed by github.com/prometheus/client_golang. Counter, Gauge, and
// Histogram wrap the library's collectors so call sites keep the small
// Inc/Add/Set/Observe surface while the underlying bookkeeping, HELP/TYPE
// metadata, and text exposition format come from the library rather than
// a hand-rolled encoder.
package metrics

import (
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Counter
// ---------------------------------------------------------------------------

// Counter is a monotonically incrementing counter backed by a
// prometheus.Counter.
type Counter struct {
	name string
	pc   prometheus.Counter
}

// NewCounter returns a new, unregistered Counter with the given name. Pass it
// to a Registry (or prometheus.MustRegister it directly) to have it scraped.
func NewCounter(name string) *Counter {
	return &Counter{
		name: name,
		// "_total" keeps the registered series name distinct from a Gauge or
		// Histogram created under the same logical name (Prometheus requires
		// unique series names within a registry), and follows the client
		// library's own counter naming convention.
		pc: prometheus.NewCounter(prometheus.CounterOpts{Name: promSanitize(name) + "_total", Help: name}),
	}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.pc.Inc() }

// Add increments the counter by n. Negative values are silently ignored
// because counters are monotonically increasing.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.pc.Add(float64(n))
	}
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	var m dto.Metric
	c.pc.Write(&m)
	return int64(m.GetCounter().GetValue())
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Collector exposes the underlying prometheus.Collector for registration.
func (c *Counter) Collector() prometheus.Collector { return c.pc }

// ---------------------------------------------------------------------------
// Gauge
// ---------------------------------------------------------------------------

// Gauge is a value that can go up and down, backed by a prometheus.Gauge.
type Gauge struct {
	name string
	pg   prometheus.Gauge
}

// NewGauge returns a new, unregistered Gauge with the given name.
func NewGauge(name string) *Gauge {
	return &Gauge{
		name: name,
		pg:   prometheus.NewGauge(prometheus.GaugeOpts{Name: promSanitize(name), Help: name}),
	}
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v int64) { g.pg.Set(float64(v)) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.pg.Inc() }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.pg.Dec() }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 {
	var m dto.Metric
	g.pg.Write(&m)
	return int64(m.GetGauge().GetValue())
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Collector exposes the underlying prometheus.Collector for registration.
func (g *Gauge) Collector() prometheus.Collector { return g.pg }

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// Histogram tracks the distribution of observed values using a
// prometheus.Histogram for the exported buckets, plus a small shadow
// count/sum/min/max used for the Min/Max/Mean accessors that the
// prometheus client doesn't expose on a write-only collector.
type Histogram struct {
	name string
	ph   prometheus.Histogram

	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// NewHistogram returns a new, unregistered Histogram with the given name,
// using the Prometheus client's default bucket boundaries.
func NewHistogram(name string) *Histogram {
	return &Histogram{
		name: name,
		// "_hist" keeps the registered series name distinct from a Gauge
		// created under the same logical name.
		ph: prometheus.NewHistogram(prometheus.HistogramOpts{Name: promSanitize(name) + "_hist", Help: name}),
	}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.ph.Observe(v)

	h.mu.Lock()
	if h.count == 0 {
		h.min, h.max = v, v
	} else {
		if v < h.min {
			h.min = v
		}
		if v > h.max {
			h.max = v
		}
	}
	h.count++
	h.sum += v
	h.mu.Unlock()
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the sum of all observed values.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Min returns the smallest observed value. Returns 0 if no values have been
// observed.
func (h *Histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.min
}

// Max returns the largest observed value. Returns 0 if no values have been
// observed.
func (h *Histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.max
}

// Mean returns the arithmetic mean of all observations. Returns 0 when no
// values have been observed.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Collector exposes the underlying prometheus.Collector for registration.
func (h *Histogram) Collector() prometheus.Collector { return h.ph }

// ---------------------------------------------------------------------------
// Timer
// ---------------------------------------------------------------------------

// Timer is a convenience helper for timing operations. It records the
// elapsed duration (in milliseconds) into an associated Histogram when
// Stop is called.
type Timer struct {
	start time.Time
	hist  *Histogram
}

// NewTimer starts a new timer that will record into h when stopped.
func NewTimer(h *Histogram) *Timer {
	return &Timer{
		start: time.Now(),
		hist:  h,
	}
}

// Stop records the elapsed time in milliseconds into the associated
// histogram and returns the duration.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.hist != nil {
		t.hist.Observe(float64(d.Milliseconds()))
	}
	return d
}

// promSanitize converts a dot/dash-separated metric name into a name valid
// for a Prometheus metric ([a-zA-Z_:][a-zA-Z0-9_:]*).
func promSanitize(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == ':':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		return "m_" + string(out)
	}
	return string(out)
}
