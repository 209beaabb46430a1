package prep

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Result is a coerced record together with the fields that could not be used.
type Result struct {
	Record Record
	// Missing lists schema keys that are absent from the record, in schema order.
	Missing []string
	// Invalid lists schema keys that were present with an unusable shape.
	// They are also listed in Missing.
	Invalid []string
	// Strategy names the extraction step that produced the object.
	Strategy string
}

// strategy pulls a candidate JSON object out of raw model output.
type strategy struct {
	name    string
	extract func(raw string) (string, bool)
}

var (
	labeledFenceRe = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
	anyFenceRe     = regexp.MustCompile("(?s)```[\\w+.-]*\\s*(\\{.*?\\})\\s*```")
	trailingRe     = regexp.MustCompile(`(?s)(\{.*\})\s*$`)
)

// strategies are tried in order; the first candidate that parses wins.
var strategies = []strategy{
	{name: "whole", extract: wholeText},
	{name: "json-fence", extract: submatch(labeledFenceRe)},
	{name: "any-fence", extract: submatch(anyFenceRe)},
	{name: "trailing-object", extract: trailingObject},
}

// Coerce recovers a brief record from raw model output. Missing schema keys
// are reported on the result, not as an error.
func Coerce(raw string) (*Result, error) {
	for _, s := range strategies {
		candidate, ok := s.extract(raw)
		if !ok {
			continue
		}

		value, err := parseJSON(candidate)
		if err != nil {
			continue
		}

		obj, ok := value.(map[string]any)
		if !ok {
			return nil, &MalformedResponseError{
				Raw:    raw,
				Reason: fmt.Sprintf("expected a JSON object, got %s", describe(value)),
			}
		}

		result := decodeRecord(obj)
		result.Strategy = s.name
		return result, nil
	}

	return nil, &MalformedResponseError{Raw: raw, Reason: "no JSON object found in the response"}
}

func wholeText(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// trailingObject returns the top-level object that closes at the very end of raw.
func trailingObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !strings.HasSuffix(s, "}") {
		return "", false
	}

	if span, ok := lastBalancedObject(s); ok {
		return span, true
	}

	m := trailingRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// lastBalancedObject scans s for top-level {...} spans, skipping braces inside
// JSON strings, and returns the span ending at the last byte of s.
func lastBalancedObject(s string) (string, bool) {
	var (
		depth    int
		start    = -1
		inString bool
		escaped  bool
		lastFrom = -1
		lastTo   = -1
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			// Quotes in surrounding prose are not JSON strings.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				lastFrom, lastTo = start, i
			}
		}
	}

	if lastFrom < 0 || lastTo != len(s)-1 {
		return "", false
	}
	return s[lastFrom : lastTo+1], true
}

func parseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func decodeRecord(obj map[string]any) *Result {
	result := &Result{}
	extras := make(map[string]any)

	known := make(map[string]struct{}, len(Fields))
	for _, f := range Fields {
		known[f.Key] = struct{}{}
	}
	for k, v := range obj {
		if _, ok := known[k]; !ok {
			extras[k] = v
		}
	}

	for _, f := range Fields {
		v, ok := obj[f.Key]
		if !ok || v == nil {
			result.Missing = append(result.Missing, f.Key)
			continue
		}

		if err := decodeField(&result.Record, f.Key, v); err != nil {
			result.Missing = append(result.Missing, f.Key)
			result.Invalid = append(result.Invalid, f.Key)
			extras[f.Key] = v
		}
	}

	if len(extras) > 0 {
		result.Record.Extras = extras
	}

	return result
}

func decodeField(rec *Record, key string, value any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(shapeHook),
		Result:     rec,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any{key: value})
}

var (
	stringType     = reflect.TypeOf("")
	stringListType = reflect.TypeOf([]string{})
)

// shapeHook lifts a single value into a list, joins a list given for a text
// field and stringifies scalars. Objects are left alone so decoding fails.
func shapeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case stringListType:
		if s, ok := scalarText(data); ok {
			return []string{s}, nil
		}
		if items, ok := data.([]any); ok {
			return textItems(items)
		}
	case stringType:
		if s, ok := scalarText(data); ok {
			return s, nil
		}
		if items, ok := data.([]any); ok {
			list, err := textItems(items)
			if err != nil {
				return nil, err
			}
			return strings.Join(list, "\n"), nil
		}
	}
	return data, nil
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func textItems(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		s, ok := scalarText(item)
		if !ok {
			return nil, fmt.Errorf("item %d is %s, not text", i, describe(item))
		}
		out = append(out, s)
	}
	return out, nil
}
