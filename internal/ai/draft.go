package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// TaskDraft is the structured result of a generation. The typed fields are
// filled when the model used the expected JSON types; the parsed object is
// kept verbatim and is what MarshalJSON emits, so unknown or oddly typed
// fields reach the client untouched.
type TaskDraft struct {
	Title                string
	Description          string
	Priority             string
	EstimatedEffortHours *float64
	Subtasks             []string

	fields map[string]json.RawMessage
	raw    json.RawMessage
}

var errNotObject = errors.New("generated JSON is not an object")

// ExtractTaskDraft parses the span from the first '{' to the last '}' of
// text, or the whole text when there is no such span. The span is greedy on
// purpose: prose after the object that contains '}' makes extraction fail
// rather than guessing where the object ends.
func ExtractTaskDraft(text string) (TaskDraft, error) {
	candidate := text
	if start := strings.IndexByte(text, '{'); start >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > start {
			candidate = text[start : end+1]
		}
	}

	draft, err := parseDraft([]byte(candidate))
	if err != nil {
		return TaskDraft{}, &InvalidModelOutputError{Text: text, Err: err}
	}
	return draft, nil
}

func parseDraft(data []byte) (TaskDraft, error) {
	data = bytes.TrimSpace(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return TaskDraft{}, err
	}
	if fields == nil {
		return TaskDraft{}, errNotObject
	}

	d := TaskDraft{fields: fields, raw: json.RawMessage(compact(data))}

	// Loose typing: a field with an unexpected JSON type is left zero here
	// and still travels in the raw object.
	d.decodeField("title", &d.Title)
	d.decodeField("description", &d.Description)
	d.decodeField("priority", &d.Priority)
	d.decodeField("subtasks", &d.Subtasks)

	var effort float64
	if d.decodeField("estimatedEffortHours", &effort) {
		d.EstimatedEffortHours = &effort
	}
	return d, nil
}

func (d *TaskDraft) decodeField(name string, dst any) bool {
	raw, ok := d.fields[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Has reports whether the model emitted the field at all.
func (d TaskDraft) Has(name string) bool {
	_, ok := d.fields[name]
	return ok
}

// Raw returns the parsed object exactly as the model produced it.
func (d TaskDraft) Raw() json.RawMessage {
	return d.raw
}

// Map decodes the raw object into generic values.
func (d TaskDraft) Map() map[string]any {
	out := map[string]any{}
	if len(d.raw) > 0 {
		_ = json.Unmarshal(d.raw, &out)
	}
	return out
}

func (d TaskDraft) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}

	out := map[string]any{}
	if d.Title != "" {
		out["title"] = d.Title
	}
	if d.Description != "" {
		out["description"] = d.Description
	}
	if d.Priority != "" {
		out["priority"] = d.Priority
	}
	if d.EstimatedEffortHours != nil {
		out["estimatedEffortHours"] = *d.EstimatedEffortHours
	}
	if d.Subtasks != nil {
		out["subtasks"] = d.Subtasks
	}
	return json.Marshal(out)
}
