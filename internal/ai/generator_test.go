package ai

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveGeneration(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestScenarioStructuredCandidate(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"{\"title\":\"3-day trip plan\",\"priority\":\"medium\",\"subtasks\":[\"Book hotel\",\"Pack bags\"]}"}]}}]}`)
	obs := &recordingObserver{}
	gen := NewGenerator(f.client(), StaticConfig{APIKey: "k", Model: "gemini-1.5-flash"}, nil, obs)

	d, err := gen.GenerateTaskDraft(context.Background(), "Asha", "Plan a 3-day trip")
	if err != nil {
		t.Fatalf("GenerateTaskDraft: %v", err)
	}
	if d.Title != "3-day trip plan" || d.Priority != "medium" {
		t.Fatalf("draft = %+v", d)
	}
	if !reflect.DeepEqual(d.Subtasks, []string{"Book hotel", "Pack bags"}) {
		t.Fatalf("subtasks = %v", d.Subtasks)
	}
	if d.Has("description") || d.EstimatedEffortHours != nil {
		t.Fatalf("absent fields should stay absent")
	}
	if !reflect.DeepEqual(obs.outcomes, []string{OutcomeOK}) {
		t.Fatalf("outcomes = %v", obs.outcomes)
	}
}

func TestScenarioModelNotSupported(t *testing.T) {
	f := newFakeGemini(t, http.StatusNotFound, `{"error":{"code":404,"message":"models/gamma-x is not found"}}`)
	core, logs := observer.New(zap.WarnLevel)
	obs := &recordingObserver{}
	gen := NewGenerator(f.client(), StaticConfig{APIKey: "k", Model: "gamma-x"}, zap.New(core), obs)

	_, err := gen.GenerateTaskDraft(context.Background(), "Asha", "anything")

	var ns *ModelNotSupportedError
	if !errors.As(err, &ns) {
		t.Fatalf("err = %v, want ModelNotSupportedError", err)
	}
	if ns.Model != "gamma-x" {
		t.Fatalf("model = %q", ns.Model)
	}
	if ns.Models == nil || len(ns.Models.Models) == 0 {
		t.Fatalf("expected discovered models, got %+v", ns.Models)
	}
	if f.listCalls.Load() != 1 || f.generateCalls.Load() != 1 {
		t.Fatalf("calls list=%d generate=%d, want 1 and 1", f.listCalls.Load(), f.generateCalls.Load())
	}
	if !reflect.DeepEqual(obs.outcomes, []string{KindModelNotSupported}) {
		t.Fatalf("outcomes = %v", obs.outcomes)
	}

	entries := logs.FilterField(zap.String("kind", KindModelNotSupported)).All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning with kind field, got %d", len(entries))
	}
	if raw, ok := entries[0].ContextMap()["raw"].(string); !ok || raw == "" {
		t.Fatalf("warning should carry the raw body")
	}
}

func TestScenarioBareTextWithProse(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, `Sure! Here you go: {"title":"Buy groceries"} Hope that helps!`)
	gen := NewGenerator(f.client(), StaticConfig{APIKey: "k", Model: "m"}, nil, nil)

	d, err := gen.GenerateTaskDraft(context.Background(), "Asha", "groceries")
	if err != nil {
		t.Fatalf("GenerateTaskDraft: %v", err)
	}
	if d.Title != "Buy groceries" {
		t.Fatalf("title = %q", d.Title)
	}
	for _, field := range []string{"description", "priority", "estimatedEffortHours", "subtasks"} {
		if d.Has(field) {
			t.Fatalf("field %q should be absent", field)
		}
	}
}

func TestGenerateTaskDraftInvalidOutput(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"I cannot help with that."}]}}]}`)
	obs := &recordingObserver{}
	gen := NewGenerator(f.client(), StaticConfig{APIKey: "k", Model: "m"}, nil, obs)

	_, err := gen.GenerateTaskDraft(context.Background(), "Asha", "x")

	var out *InvalidModelOutputError
	if !errors.As(err, &out) || out.Text != "I cannot help with that." {
		t.Fatalf("err = %v, want InvalidModelOutputError with text", err)
	}
	if !reflect.DeepEqual(obs.outcomes, []string{KindInvalidOutput}) {
		t.Fatalf("outcomes = %v", obs.outcomes)
	}
}

func TestGeneratorReadsConfigOnEveryCall(t *testing.T) {
	f := newFakeGemini(t, http.StatusOK, `{"text":"{\"title\":\"t\"}"}`)

	var calls int
	cfg := ConfigFunc(func() ModelConfig {
		calls++
		if calls == 1 {
			return ModelConfig{}
		}
		return ModelConfig{APIKey: "k", Model: "m"}
	})
	gen := NewGenerator(f.client(), cfg, nil, nil)

	if _, err := gen.GenerateTaskDraft(context.Background(), "", "x"); KindOf(err) != KindConfiguration {
		t.Fatalf("first call err = %v, want configuration failure", err)
	}
	if _, err := gen.GenerateTaskDraft(context.Background(), "", "x"); err != nil {
		t.Fatalf("second call: %v", err)
	}
}
