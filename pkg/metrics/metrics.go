package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
var ErrNegativeCounterValue = errors.New("counter cannot be decreased")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores the bits of a float64 in a uint64 for atomic access.
type atomicFloat64 struct {
	bits uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&a.bits))
}

// Add adds delta using a CAS loop.
func (a *atomicFloat64) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&a.bits)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(&a.bits, old, next) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Collect returns all metric samples for exposition.
	Collect() []Sample
}

// Sample represents a single metric sample with labels.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// family holds the per-label-combination series of one metric.
type family[T any] struct {
	name       string
	help       string
	labelNames []string
	newSeries  func() *T

	mu     sync.RWMutex
	series map[string]*labeled[T]
}

type labeled[T any] struct {
	labels map[string]string
	value  *T
}

func (f *family[T]) get(kind string, values []string) (*labeled[T], error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s %s expected %d labels, got %d", ErrLabelCountMismatch, kind, f.name, len(f.labelNames), len(values))
	}

	key := strings.Join(values, "\x00")
	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; ok {
		return s, nil
	}
	labels := make(map[string]string, len(f.labelNames))
	for i, name := range f.labelNames {
		labels[name] = values[i]
	}
	s = &labeled[T]{labels: labels, value: f.newSeries()}
	f.series[key] = s
	return s, nil
}

func (f *family[T]) snapshot() []*labeled[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*labeled[T], 0, len(f.series))
	for _, s := range f.series {
		out = append(out, s)
	}
	return out
}

// Counter is a monotonically increasing metric.
type Counter struct {
	f *family[atomicFloat64]
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.f.name }

// Help returns the help text.
func (c *Counter) Help() string { return c.f.help }

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// WithLabels returns the series for the given label values.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	s, err := c.f.get("counter", values)
	if err != nil {
		return nil, err
	}
	return &CounterVec{v: s.value}, nil
}

// Inc increments a counter without labels by 1.
func (c *Counter) Inc() error {
	return c.Add(1)
}

// Add adds delta to a counter without labels.
func (c *Counter) Add(delta float64) error {
	vec, err := c.WithLabels()
	if err != nil {
		return err
	}
	return vec.Add(delta)
}

// Collect returns all metric samples.
func (c *Counter) Collect() []Sample {
	series := c.f.snapshot()
	samples := make([]Sample, 0, len(series))
	for _, s := range series {
		samples = append(samples, Sample{Name: c.f.name, Labels: s.labels, Value: s.value.Load()})
	}
	return samples
}

// CounterVec is one labeled counter series.
type CounterVec struct {
	v *atomicFloat64
}

// Inc increments the counter by 1.
func (v *CounterVec) Inc() error {
	return v.Add(1)
}

// Add adds delta to the counter. Negative deltas are rejected.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	v.v.Add(delta)
	return nil
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	f       *family[histogramValue]
	buckets []float64
}

type histogramValue struct {
	counts []uint64 // per bucket, atomic
	sum    atomicFloat64
	count  uint64
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.f.name }

// Help returns the help text.
func (h *Histogram) Help() string { return h.f.help }

// Type returns the metric type.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// WithLabels returns the series for the given label values.
func (h *Histogram) WithLabels(values ...string) (*HistogramVec, error) {
	s, err := h.f.get("histogram", values)
	if err != nil {
		return nil, err
	}
	return &HistogramVec{h: h, v: s.value}, nil
}

// Observe records a value in a histogram without labels.
func (h *Histogram) Observe(value float64) error {
	vec, err := h.WithLabels()
	if err != nil {
		return err
	}
	vec.Observe(value)
	return nil
}

// Collect returns the cumulative bucket, _sum and _count samples.
func (h *Histogram) Collect() []Sample {
	series := h.f.snapshot()
	samples := make([]Sample, 0, (len(h.buckets)+2)*len(series))
	for _, s := range series {
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += atomic.LoadUint64(&s.value.counts[i])
			labels := make(map[string]string, len(s.labels)+1)
			for k, v := range s.labels {
				labels[k] = v
			}
			labels["le"] = formatFloat(bound)
			samples = append(samples, Sample{Name: h.f.name + "_bucket", Labels: labels, Value: float64(cumulative)})
		}
		samples = append(samples,
			Sample{Name: h.f.name + "_sum", Labels: s.labels, Value: s.value.sum.Load()},
			Sample{Name: h.f.name + "_count", Labels: s.labels, Value: float64(atomic.LoadUint64(&s.value.count))},
		)
	}
	return samples
}

// HistogramVec is one labeled histogram series.
type HistogramVec struct {
	h *Histogram
	v *histogramValue
}

// Observe records a value.
func (v *HistogramVec) Observe(value float64) {
	for i, bound := range v.h.buckets {
		if value <= bound {
			atomic.AddUint64(&v.v.counts[i], 1)
			break
		}
	}
	v.v.sum.Add(value)
	atomic.AddUint64(&v.v.count, 1)
}

// Registry holds all registered metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]struct{}
}

// NewRegistry creates a new metric registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a new counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{f: &family[atomicFloat64]{
		name:       name,
		help:       help,
		labelNames: labels,
		newSeries:  func() *atomicFloat64 { return &atomicFloat64{} },
		series:     make(map[string]*labeled[atomicFloat64]),
	}}
	r.register(c)
	return c
}

// NewHistogram creates and registers a new histogram. Buckets are sorted
// and a +Inf bucket is appended when missing.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}

	h := &Histogram{buckets: sorted}
	h.f = &family[histogramValue]{
		name:       name,
		help:       help,
		labelNames: labels,
		newSeries:  func() *histogramValue { return &histogramValue{counts: make([]uint64, len(sorted))} },
		series:     make(map[string]*labeled[histogramValue]),
	}
	r.register(h)
	return h
}

// register panics on duplicate names since they produce invalid exposition output.
func (r *Registry) register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[m.Name()]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, m.Name()))
	}
	r.names[m.Name()] = struct{}{}
	r.metrics = append(r.metrics, m)
}

// WriteText writes every metric with samples in the Prometheus text format.
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.RLock()
	metrics := append([]Metric(nil), r.metrics...)
	r.mu.RUnlock()

	for _, m := range metrics {
		if err := writeMetric(w, m); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns an http.Handler that serves the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.WriteText(w)
	})
}

func writeMetric(w io.Writer, m Metric) error {
	samples := m.Collect()
	if len(samples) == 0 {
		return nil
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return formatLabels(samples[i].Labels) < formatLabels(samples[j].Labels)
	})

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", m.Name(), escapeHelp(m.Help()), m.Name(), m.Type()); err != nil {
		return err
	}
	for _, s := range samples {
		var err error
		if len(s.Labels) == 0 {
			_, err = fmt.Fprintf(w, "%s %s\n", s.Name, formatFloat(s.Value))
		} else {
			_, err = fmt.Fprintf(w, "%s{%s} %s\n", s.Name, formatLabels(s.Labels), formatFloat(s.Value))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// formatLabels formats labels as key="value",key="value" with sorted keys.
func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + escapeLabelValue(labels[k]) + `"`
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	s := fmt.Sprintf("%g", v)
	if v == float64(int64(v)) && !strings.ContainsAny(s, ".e") {
		return fmt.Sprintf("%.0f", v)
	}
	return s
}

func escapeHelp(s string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(s)
}

func escapeLabelValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}

// DefaultBuckets are the default histogram buckets for durations in seconds.
var DefaultBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
