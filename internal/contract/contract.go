// Package contract validates structured engine output against a typed schema,
// filling documented defaults for missing or mistyped fields.
package contract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Kind classifies a contract failure.
type Kind int

// Contract failure kinds.
const (
	KindMalformed Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is returned when engine output cannot be accepted at all.
type Error struct {
	Kind   Kind
	Schema string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("contract: %s %s: %s", e.Schema, e.Kind, e.Reason)
}

// FieldType is the expected JSON type of a schema field.
type FieldType int

// Field types.
const (
	String FieldType = iota
	StringList
	Enum
)

// Field describes one top-level property of the expected document.
type Field struct {
	Name    string
	Type    FieldType
	Default string   // String and Enum only; lists default to empty
	Allowed []string // Enum only, lower case
}

// Values holds the normalized field values handed to Schema.Build.
type Values struct {
	strings map[string]string
	lists   map[string][]string
}

// String returns a String or Enum field.
func (v Values) String(name string) string {
	return v.strings[name]
}

// List returns a StringList field, never nil.
func (v Values) List(name string) []string {
	if l, ok := v.lists[name]; ok {
		return l
	}
	return []string{}
}

// Schema binds a field list to the typed value built from it.
type Schema[T any] struct {
	Name   string
	Fields []Field
	Build  func(Values) T
}

// Result is a validated value plus the fields that were defaulted.
type Result[T any] struct {
	Value     T
	Defaulted []string
}

// Validate extracts a JSON object from raw and applies schema. A document that
// does not parse as an object fails with KindMalformed; any field problem is
// repaired with the field's default and recorded in Result.Defaulted.
func Validate[T any](raw string, schema Schema[T]) (Result[T], error) {
	var res Result[T]

	doc := ExtractJSON(raw)
	if doc == "" || !gjson.Valid(doc) {
		return res, &Error{Kind: KindMalformed, Schema: schema.Name, Reason: "response is not valid JSON"}
	}
	root := gjson.Parse(doc)
	if !root.IsObject() {
		return res, &Error{Kind: KindMalformed, Schema: schema.Name, Reason: "response is not a JSON object"}
	}

	vals := Values{strings: map[string]string{}, lists: map[string][]string{}}
	for _, f := range schema.Fields {
		ok := f.apply(root.Get(f.Name), vals)
		if !ok {
			res.Defaulted = append(res.Defaulted, f.Name)
		}
	}

	if len(res.Defaulted) > 0 {
		zap.L().Warn("contract: fields defaulted",
			zap.String("schema", schema.Name),
			zap.Strings("fields", res.Defaulted),
		)
	}

	res.Value = schema.Build(vals)
	return res, nil
}

// apply stores the field's value (or default) and reports whether the
// document supplied a valid value.
func (f Field) apply(r gjson.Result, vals Values) bool {
	switch f.Type {
	case StringList:
		out := []string{}
		if !r.IsArray() {
			vals.lists[f.Name] = out
			return false
		}
		clean := true
		for _, item := range r.Array() {
			if item.Type != gjson.String {
				clean = false
				continue
			}
			out = append(out, strings.TrimSpace(item.String()))
		}
		vals.lists[f.Name] = out
		return clean

	case Enum:
		if r.Type == gjson.String {
			v := strings.ToLower(strings.TrimSpace(r.String()))
			if slices.Contains(f.Allowed, v) {
				vals.strings[f.Name] = v
				return true
			}
		}
		vals.strings[f.Name] = f.Default
		return false

	default:
		if r.Type != gjson.String {
			vals.strings[f.Name] = f.Default
			return false
		}
		vals.strings[f.Name] = strings.TrimSpace(r.String())
		return true
	}
}

// ExtractJSON strips markdown code fences and surrounding prose, returning
// the outermost {...} span of text.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.Contains(text[:nl], "{") {
			text = text[nl+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
