package metrics

import (
	"sync"
	"time"
)

// Default metrics for soapkit. They are nil until Init is called, and every
// Record/Observe helper below is a no-op in that state.
//
// # Label values
//
//   - outcome (faults): custom, generic, config_error, decode_error
//   - mode (unmarshal): direct, transformed
//   - status (unmarshal): ok, error
//   - outcome (calls): ok, fault, http_error, transport_error
var (
	// FaultsTotal counts resolved SOAP faults by how the resolver finished.
	// Labels: outcome
	FaultsTotal *Counter

	// UnmarshalTotal counts unmarshal calls through the transforming unmarshaller.
	// Labels: mode, status
	UnmarshalTotal *Counter

	// TransformDuration tracks the duration of transform executions in seconds.
	// Labels: engine
	TransformDuration *Histogram

	// CallsTotal counts SOAP calls made by the client.
	// Labels: outcome
	CallsTotal *Counter

	// CallDuration tracks the round trip time of SOAP calls in seconds.
	CallDuration *Histogram

	defaultRegistry *Registry
	initOnce        sync.Once
	mu              sync.RWMutex
)

// Init initializes the default metrics and returns the registry.
// It is idempotent.
func Init() *Registry {
	initOnce.Do(func() {
		r := NewRegistry()

		mu.Lock()
		defer mu.Unlock()
		defaultRegistry = r
		FaultsTotal = r.NewCounter(
			"soapkit_faults_total",
			"Total number of SOAP faults resolved",
			"outcome",
		)
		UnmarshalTotal = r.NewCounter(
			"soapkit_unmarshal_total",
			"Total number of unmarshal operations",
			"mode", "status",
		)
		TransformDuration = r.NewHistogram(
			"soapkit_transform_duration_seconds",
			"Duration of payload transforms in seconds",
			DefaultBuckets,
			"engine",
		)
		CallsTotal = r.NewCounter(
			"soapkit_calls_total",
			"Total number of SOAP calls",
			"outcome",
		)
		CallDuration = r.NewHistogram(
			"soapkit_call_duration_seconds",
			"Duration of SOAP calls in seconds",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		)
	})
	return DefaultRegistry()
}

// DefaultRegistry returns the default registry, or nil before Init.
func DefaultRegistry() *Registry {
	mu.RLock()
	defer mu.RUnlock()
	return defaultRegistry
}

// Reset clears the default metrics so Init can run again. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	initOnce = sync.Once{}
	defaultRegistry = nil
	FaultsTotal = nil
	UnmarshalTotal = nil
	TransformDuration = nil
	CallsTotal = nil
	CallDuration = nil
}

// RecordFault counts a resolved fault.
func RecordFault(outcome string) {
	mu.RLock()
	c := FaultsTotal
	mu.RUnlock()
	if c == nil {
		return
	}
	if vec, err := c.WithLabels(outcome); err == nil {
		_ = vec.Inc()
	}
}

// RecordUnmarshal counts an unmarshal call.
func RecordUnmarshal(mode, status string) {
	mu.RLock()
	c := UnmarshalTotal
	mu.RUnlock()
	if c == nil {
		return
	}
	if vec, err := c.WithLabels(mode, status); err == nil {
		_ = vec.Inc()
	}
}

// ObserveTransform records the duration of one transform execution.
func ObserveTransform(engine string, d time.Duration) {
	mu.RLock()
	h := TransformDuration
	mu.RUnlock()
	if h == nil {
		return
	}
	if vec, err := h.WithLabels(engine); err == nil {
		vec.Observe(d.Seconds())
	}
}

// RecordCall counts a SOAP call and records its duration.
func RecordCall(outcome string, d time.Duration) {
	mu.RLock()
	c, h := CallsTotal, CallDuration
	mu.RUnlock()
	if c != nil {
		if vec, err := c.WithLabels(outcome); err == nil {
			_ = vec.Inc()
		}
	}
	if h != nil {
		_ = h.Observe(d.Seconds())
	}
}
