package metrics

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test_counter", "A test counter")

		_ = c.Inc()
		_ = c.Inc()
		_ = c.Add(5)

		samples := c.Collect()
		if len(samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(samples))
		}
		if samples[0].Value != 7 {
			t.Errorf("expected value 7, got %f", samples[0].Value)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("faults_total", "Faults", "outcome")

		vec, err := c.WithLabels("custom")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = vec.Inc()
		_ = vec.Inc()

		vec, _ = c.WithLabels("generic")
		_ = vec.Add(3)

		found := make(map[string]float64)
		for _, s := range c.Collect() {
			found[s.Labels["outcome"]] = s.Value
		}
		if found["custom"] != 2 {
			t.Errorf("expected custom=2, got %f", found["custom"])
		}
		if found["generic"] != 3 {
			t.Errorf("expected generic=3, got %f", found["generic"])
		}
	})

	t.Run("wrong label count returns error", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test", "test", "label1", "label2")
		_, err := c.WithLabels("only_one")
		if !errors.Is(err, ErrLabelCountMismatch) {
			t.Errorf("expected ErrLabelCountMismatch, got %v", err)
		}
	})

	t.Run("negative add returns error", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test", "test")
		if err := c.Add(-1); !errors.Is(err, ErrNegativeCounterValue) {
			t.Errorf("expected ErrNegativeCounterValue, got %v", err)
		}
	})
}

func TestHistogram(t *testing.T) {
	t.Run("basic histogram", func(t *testing.T) {
		r := NewRegistry()
		h := r.NewHistogram("transform_duration", "Transform duration", []float64{0.1, 0.5, 1.0})

		_ = h.Observe(0.05)
		_ = h.Observe(0.3)
		_ = h.Observe(0.8)
		_ = h.Observe(2.0)

		samples := h.Collect()

		// 0.1, 0.5, 1, +Inf, _sum, _count
		if len(samples) != 6 {
			t.Fatalf("expected 6 samples, got %d", len(samples))
		}

		bucketValues := make(map[string]float64)
		var sum, count float64
		for _, s := range samples {
			switch {
			case strings.HasSuffix(s.Name, "_bucket"):
				bucketValues[s.Labels["le"]] = s.Value
			case strings.HasSuffix(s.Name, "_sum"):
				sum = s.Value
			case strings.HasSuffix(s.Name, "_count"):
				count = s.Value
			}
		}

		want := map[string]float64{"0.1": 1, "0.5": 2, "1": 3, "+Inf": 4}
		for le, v := range want {
			if bucketValues[le] != v {
				t.Errorf("expected le=%s count=%v, got %v", le, v, bucketValues[le])
			}
		}

		expectedSum := 0.05 + 0.3 + 0.8 + 2.0
		if sum != expectedSum {
			t.Errorf("expected sum=%f, got %f", expectedSum, sum)
		}
		if count != 4 {
			t.Errorf("expected count=4, got %f", count)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		h := r.NewHistogram("engine_duration", "Engine duration", []float64{0.1, 1.0}, "engine")

		vec, err := h.WithLabels("rules")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		vec.Observe(0.05)
		vec, _ = h.WithLabels("other")
		vec.Observe(0.5)

		// 2 series * (2 buckets + +Inf + sum + count)
		if samples := h.Collect(); len(samples) != 10 {
			t.Fatalf("expected 10 samples, got %d", len(samples))
		}
	})

	t.Run("buckets are sorted", func(t *testing.T) {
		r := NewRegistry()
		h := r.NewHistogram("unsorted", "Unsorted buckets", []float64{5, 1})
		_ = h.Observe(2)

		for _, s := range h.Collect() {
			if s.Name != "unsorted_bucket" {
				continue
			}
			switch s.Labels["le"] {
			case "1":
				if s.Value != 0 {
					t.Errorf("le=1: expected 0, got %v", s.Value)
				}
			case "5", "+Inf":
				if s.Value != 1 {
					t.Errorf("le=%s: expected 1, got %v", s.Labels["le"], s.Value)
				}
			}
		}
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()

	c := r.NewCounter("test_faults_total", "Total faults", "outcome")
	h := r.NewHistogram("test_duration_seconds", "Duration", []float64{0.1, 1.0})
	r.NewCounter("test_unused_total", "Never incremented")

	vec, _ := c.WithLabels("custom")
	_ = vec.Inc()
	vec, _ = c.WithLabels("generic")
	_ = vec.Add(5)
	_ = h.Observe(0.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	r.Handler().ServeHTTP(rec, req)

	resp := rec.Result()
	body, _ := io.ReadAll(resp.Body)
	output := string(body)

	contentType := resp.Header.Get("Content-Type")
	if contentType != "text/plain; version=0.0.4; charset=utf-8" {
		t.Errorf("unexpected Content-Type: %s", contentType)
	}

	expectedLines := []string{
		"# HELP test_faults_total Total faults",
		"# TYPE test_faults_total counter",
		`test_faults_total{outcome="custom"} 1`,
		`test_faults_total{outcome="generic"} 5`,
		"# HELP test_duration_seconds Duration",
		"# TYPE test_duration_seconds histogram",
		`test_duration_seconds_bucket{le="0.1"} 0`,
		`test_duration_seconds_bucket{le="1"} 1`,
		`test_duration_seconds_bucket{le="+Inf"} 1`,
		"test_duration_seconds_sum 0.5",
		"test_duration_seconds_count 1",
	}
	for _, expected := range expectedLines {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected line: %s", expected)
		}
	}

	if strings.Contains(output, "test_unused_total") {
		t.Error("metrics without samples should not be written")
	}

	if strings.Index(output, `outcome="custom"`) > strings.Index(output, `outcome="generic"`) {
		t.Error("expected samples sorted by labels")
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup_total", "first")

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic on duplicate metric name")
		}
		if !strings.Contains(rec.(string), "dup_total") {
			t.Errorf("panic message should name the metric, got %v", rec)
		}
	}()
	r.NewHistogram("dup_total", "second", nil)
}

func TestConcurrency(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("concurrent_counter", "Test counter", "worker")
	h := r.NewHistogram("concurrent_histogram", "Test histogram", []float64{1, 10, 100})

	var wg sync.WaitGroup
	workers := 100
	iterations := 1000

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				vec, _ := c.WithLabels("worker")
				_ = vec.Inc()
				_ = h.Observe(float64(j % 50))
			}
		}()
	}

	wg.Wait()

	total := float64(0)
	for _, s := range c.Collect() {
		total += s.Value
	}
	expected := float64(workers * iterations)
	if total != expected {
		t.Errorf("expected counter total %f, got %f", expected, total)
	}

	for _, s := range h.Collect() {
		if strings.HasSuffix(s.Name, "_count") && s.Value != expected {
			t.Errorf("expected histogram count %f, got %f", expected, s.Value)
		}
	}
}

func TestDefaultMetrics(t *testing.T) {
	Reset()
	defer Reset()

	// Helpers are no-ops before Init.
	RecordFault("custom")
	RecordCall("ok", time.Millisecond)
	if DefaultRegistry() != nil {
		t.Fatal("expected nil registry before Init")
	}

	registry := Init()
	if registry == nil {
		t.Fatal("Init() returned nil registry")
	}
	if Init() != registry {
		t.Error("Init() should return the same registry on subsequent calls")
	}

	for name, m := range map[string]Metric{
		"FaultsTotal":       FaultsTotal,
		"UnmarshalTotal":    UnmarshalTotal,
		"TransformDuration": TransformDuration,
		"CallsTotal":        CallsTotal,
		"CallDuration":      CallDuration,
	} {
		if m == nil {
			t.Errorf("%s not initialized", name)
		}
	}

	RecordFault("generic")
	RecordFault("generic")
	RecordUnmarshal("transformed", "ok")
	ObserveTransform("rules", 3*time.Millisecond)
	RecordCall("fault", 20*time.Millisecond)

	var buf bytes.Buffer
	if err := registry.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	output := buf.String()
	for _, expected := range []string{
		`soapkit_faults_total{outcome="generic"} 2`,
		`soapkit_unmarshal_total{mode="transformed",status="ok"} 1`,
		`soapkit_transform_duration_seconds_count{engine="rules"} 1`,
		`soapkit_calls_total{outcome="fault"} 1`,
		"soapkit_call_duration_seconds_count 1",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected line: %s\n%s", expected, output)
		}
	}
	if strings.Contains(output, `outcome="custom"`) {
		t.Error("fault recorded before Init should not be counted")
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{42, "42"},
		{0.5, "0.5"},
		{0.123456789, "0.123456789"},
		{1e10, "1e+10"},
	}

	for _, tt := range tests {
		got := formatFloat(tt.value)
		if got != tt.expected {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.value, got, tt.expected)
		}
	}
}

func TestEscapeLabelValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{`with "quotes"`, `with \"quotes\"`},
		{"with\nnewline", `with\nnewline`},
		{`back\\slash`, `back\\\\slash`},
	}

	for _, tt := range tests {
		got := escapeLabelValue(tt.input)
		if got != tt.expected {
			t.Errorf("escapeLabelValue(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
