// Package metrics provides Prometheus-compatible metrics for soapkit.
//
// The text exposition format (text/plain; version=0.0.4) is written with the
// standard library only. Counters and histograms are safe for concurrent use.
//
// # Default Metrics
//
//   - soapkit_faults_total: faults resolved (labels: outcome)
//   - soapkit_unmarshal_total: unmarshal calls (labels: mode, status)
//   - soapkit_transform_duration_seconds: transform latency (labels: engine)
//   - soapkit_calls_total: client calls (labels: outcome)
//   - soapkit_call_duration_seconds: client call latency
//
// # Usage
//
//	registry := metrics.Init()
//	http.Handle("/metrics", registry.Handler())
//
// Library code records through the helpers (RecordFault, RecordUnmarshal,
// ObserveTransform, RecordCall), which do nothing until Init has run.
//
// Custom metrics can also be created:
//
//	registry := metrics.NewRegistry()
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1")
//	vec, _ := counter.WithLabels("value1")
//	_ = vec.Inc()
package metrics
