package ai

import (
	"bytes"
	"encoding/json"
	"strings"
)

// textExtractor pulls the generated text out of one known envelope shape.
type textExtractor func(doc json.RawMessage) (string, bool)

// envelopeExtractors are tried in order; the first hit wins. The order
// tracks how the upstream schema has shifted across model versions.
var envelopeExtractors = []textExtractor{
	firstPartText,
	contentText,
	topLevelText,
	joinedPartsText,
	serializedContent,
}

// NormalizeResponse returns the text believed to hold the model's answer.
// It never fails: a body that is not JSON is returned unchanged and a JSON
// body of unknown shape is returned serialized.
func NormalizeResponse(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return string(body)
	}

	doc := json.RawMessage(trimmed)
	for _, extract := range envelopeExtractors {
		if text, ok := extract(doc); ok {
			return text
		}
	}
	return compact(doc)
}

func firstPartText(doc json.RawMessage) (string, bool) {
	return nonEmptyString(lookup(doc, "candidates", 0, "content", "parts", 0, "text"))
}

func contentText(doc json.RawMessage) (string, bool) {
	return nonEmptyString(lookup(doc, "candidates", 0, "content", "text"))
}

func topLevelText(doc json.RawMessage) (string, bool) {
	return nonEmptyString(lookup(doc, "text"))
}

func joinedPartsText(doc json.RawMessage) (string, bool) {
	raw, ok := lookup(doc, "candidates", 0, "content", "parts")
	if !ok {
		return "", false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || parts == nil {
		return "", false
	}

	var b strings.Builder
	for _, p := range parts {
		if text, ok := nonEmptyString(lookup(p, "text")); ok {
			b.WriteString(text)
		}
	}
	return b.String(), true
}

func serializedContent(doc json.RawMessage) (string, bool) {
	raw, ok := lookup(doc, "candidates", 0, "content")
	if !ok || !truthy(raw) {
		return "", false
	}
	return compact(raw), true
}

// lookup walks path through doc; string steps index objects, int steps
// index arrays. Any mismatch reports absence.
func lookup(doc json.RawMessage, path ...any) (json.RawMessage, bool) {
	cur := doc
	for _, step := range path {
		switch k := step.(type) {
		case string:
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil {
				return nil, false
			}
			next, ok := obj[k]
			if !ok {
				return nil, false
			}
			cur = next
		case int:
			var arr []json.RawMessage
			if err := json.Unmarshal(cur, &arr); err != nil || k < 0 || k >= len(arr) {
				return nil, false
			}
			cur = arr[k]
		default:
			return nil, false
		}
	}
	return cur, true
}

func nonEmptyString(raw json.RawMessage, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// truthy mirrors loose truthiness: null, false, 0 and "" are absent.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// compact serializes raw without insignificant whitespace, keeping the
// key order of the input.
func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
