package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ComplyCloud/brane/adapters/metrics"
	"github.com/ComplyCloud/brane/core/fault"
	"github.com/ComplyCloud/brane/core/schema"
	"github.com/ComplyCloud/brane/core/service"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.ModuleStarts == nil || m.EventsProcessed == nil || m.EventsRejected == nil {
		t.Error("lifecycle and event metrics must be initialized")
	}
	if m.RequestsTotal == nil || m.RequestDuration == nil || m.RequestsInFlight == nil {
		t.Error("HTTP metrics must be initialized")
	}
}

func TestObserverMethods(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ModuleStarted("db", 10*time.Millisecond, nil)
	m.ModuleStarted("api", time.Millisecond, errors.New("boom"))
	m.EventProcessed("user.created", time.Millisecond, nil)
	m.EventProcessed("user.created", time.Millisecond, nil)
	m.EventRejected("user.created", fault.InvalidPayload("user.created", nil))
	m.EventRejected("nope", fault.NotFound("unknown event"))

	if v := counterValue(t, reg, "brane_module_starts_total", map[string]string{"module": "db", "outcome": "success"}); v != 1 {
		t.Errorf("db success starts = %v, want 1", v)
	}
	if v := counterValue(t, reg, "brane_module_starts_total", map[string]string{"module": "api", "outcome": "error"}); v != 1 {
		t.Errorf("api error starts = %v, want 1", v)
	}
	if v := counterValue(t, reg, "brane_events_processed_total", map[string]string{"event": "user.created", "outcome": "success"}); v != 2 {
		t.Errorf("processed = %v, want 2", v)
	}
	if v := counterValue(t, reg, "brane_events_rejected_total", map[string]string{"reason": "invalid_payload"}); v != 1 {
		t.Errorf("invalid payload rejections = %v, want 1", v)
	}
	if v := counterValue(t, reg, "brane_events_rejected_total", map[string]string{"event": "nope", "reason": "unknown_event"}); v != 1 {
		t.Errorf("unknown event rejections = %v, want 1", v)
	}
}

func TestCollector_AsServiceObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	s := service.New(service.WithObserver(m))
	if err := s.AddModule(&service.Descriptor{ID: "cache"}); err != nil {
		t.Fatalf("AddModule failed: %v", err)
	}
	if err := s.AddEvent(&service.EventClass{
		Name:    "cache.flushed",
		Schema:  schema.Fields{},
		Process: func(context.Context, *service.Event, *service.ThingRegistry) (any, error) { return nil, nil },
	}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, _, err := s.Dispatch(context.Background(), "cache.flushed", nil); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if v := counterValue(t, reg, "brane_module_starts_total", map[string]string{"module": "cache"}); v != 1 {
		t.Errorf("cache starts = %v, want 1", v)
	}
	if v := counterValue(t, reg, "brane_events_processed_total", map[string]string{"event": "cache.flushed"}); v != 1 {
		t.Errorf("cache.flushed processed = %v, want 1", v)
	}
}
