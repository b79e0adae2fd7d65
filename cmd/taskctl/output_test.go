package main

import (
	"bytes"
	"strings"
	"testing"

	"taskmind-backend/internal/ai"
)

func TestRenderYAMLUsesAPIFieldNames(t *testing.T) {
	draft, err := ai.ExtractTaskDraft(`{"title":"Ship","estimatedEffortHours":2,"subtasks":["a"]}`)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var buf bytes.Buffer
	if err := render(&buf, formatYAML, draft); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"title: Ship", "estimatedEffortHours: 2", "- a"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, "JSON", map[string]any{"message": "Server error"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "{\n  \"message\": \"Server error\"\n}\n" {
		t.Fatalf("json output = %q", buf.String())
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	if err := render(&bytes.Buffer{}, "toml", struct{}{}); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}
