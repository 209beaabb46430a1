package prep

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the shortest JD or CV text accepted, in characters.
const DefaultMinLength = 100

// NormalizedText is a trimmed JD or CV text that passed the length check.
// The zero value is empty and is rejected by BuildPrompt.
type NormalizedText struct {
	text string
}

func (t NormalizedText) String() string { return t.text }

// Len returns the length in characters.
func (t NormalizedText) Len() int { return utf8.RuneCountInString(t.text) }

// Normalize trims raw and checks it is at least minLength characters long.
// A non-positive minLength selects DefaultMinLength.
func Normalize(raw string, minLength int) (NormalizedText, error) {
	return NormalizeField("input", raw, minLength)
}

// NormalizeField is Normalize with a field label used in the validation error.
func NormalizeField(field, raw string, minLength int) (NormalizedText, error) {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	trimmed := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(trimmed)
	if length < minLength {
		return NormalizedText{}, &ValidationError{Field: field, Length: length, Min: minLength}
	}

	return NormalizedText{text: trimmed}, nil
}
