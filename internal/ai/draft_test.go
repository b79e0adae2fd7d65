package ai

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestExtractTaskDraftRoundTripThroughProse(t *testing.T) {
	obj := map[string]any{
		"title":                "Ship landing page",
		"description":          "Design, build and publish.",
		"priority":             "high",
		"estimatedEffortHours": 6.5,
		"subtasks":             []any{"wireframe", "build", "deploy"},
	}
	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	text := "Sure! Here is your plan:\n" + string(b) + "\nGood luck."
	d, err := ExtractTaskDraft(text)
	if err != nil {
		t.Fatalf("ExtractTaskDraft: %v", err)
	}

	if d.Title != "Ship landing page" || d.Priority != "high" {
		t.Fatalf("unexpected typed fields: %+v", d)
	}
	if d.EstimatedEffortHours == nil || *d.EstimatedEffortHours != 6.5 {
		t.Fatalf("effort = %v, want 6.5", d.EstimatedEffortHours)
	}
	if !reflect.DeepEqual(d.Subtasks, []string{"wireframe", "build", "deploy"}) {
		t.Fatalf("subtasks = %v", d.Subtasks)
	}
	if !reflect.DeepEqual(d.Map(), obj) {
		t.Fatalf("round trip mismatch:\n got %v\nwant %v", d.Map(), obj)
	}
}

func TestExtractTaskDraftKeepsUnexpectedShapes(t *testing.T) {
	d, err := ExtractTaskDraft(`{"title":7,"priority":"critical","extra":{"a":1}}`)
	if err != nil {
		t.Fatalf("ExtractTaskDraft: %v", err)
	}
	if d.Title != "" {
		t.Fatalf("numeric title should not be coerced, got %q", d.Title)
	}
	if d.Priority != "critical" {
		t.Fatalf("priority = %q", d.Priority)
	}
	if !d.Has("extra") || d.Has("subtasks") {
		t.Fatalf("Has reports wrong presence")
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"title":7,"priority":"critical","extra":{"a":1}}` {
		t.Fatalf("MarshalJSON = %s", out)
	}
}

func TestExtractTaskDraftFailures(t *testing.T) {
	cases := []string{
		"no json here",
		"",
		`{"title": "x"} and then {"title": "y"}`,
		"} backwards {",
		`["not","an","object"]`,
		"null",
		`{"title": "unterminated"`,
	}
	for _, text := range cases {
		_, err := ExtractTaskDraft(text)
		var out *InvalidModelOutputError
		if !errors.As(err, &out) {
			t.Fatalf("ExtractTaskDraft(%q) err = %v, want InvalidModelOutputError", text, err)
		}
		if out.Text != text {
			t.Fatalf("error text = %q, want unchanged %q", out.Text, text)
		}
		if out.Kind() != KindInvalidOutput {
			t.Fatalf("kind = %q", out.Kind())
		}
	}
}

func TestExtractTaskDraftFencedBlock(t *testing.T) {
	text := "```json\n{\"title\":\"Read a book\",\"subtasks\":[]}\n```"
	d, err := ExtractTaskDraft(text)
	if err != nil {
		t.Fatalf("ExtractTaskDraft: %v", err)
	}
	if d.Title != "Read a book" || d.Subtasks == nil || len(d.Subtasks) != 0 {
		t.Fatalf("unexpected draft: %+v", d)
	}
}
