package prep

import (
	_ "embed"
	"fmt"
	"strings"
)

// PromptVersion identifies the embedded templates. Bump it whenever
// prompts/*.md or Fields change.
const PromptVersion = "2"

//go:embed prompts/system.md
var systemTemplate string

//go:embed prompts/user.md
var userTemplate string

// PromptMode selects how the prompt is handed to the model.
type PromptMode string

const (
	// ModeSplit sends a system instruction and a user message and asks the
	// provider for JSON output where supported.
	ModeSplit PromptMode = "split"
	// ModeCombined sends a single free-form prompt.
	ModeCombined PromptMode = "combined"
)

// ParsePromptMode parses a configured prompt mode. An empty value selects ModeSplit.
func ParsePromptMode(s string) (PromptMode, error) {
	switch PromptMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSplit:
		return ModeSplit, nil
	case ModeCombined:
		return ModeCombined, nil
	default:
		return "", fmt.Errorf("unknown prompt mode %q (want %q or %q)", s, ModeSplit, ModeCombined)
	}
}

// PromptPair is the prompt for one request. In ModeCombined the whole prompt
// is in User and System is empty.
type PromptPair struct {
	Mode   PromptMode
	System string
	User   string
}

// Combined returns the prompt as a single text.
func (p PromptPair) Combined() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// BuildPrompt renders the embedded templates with the two texts. The output
// depends only on its arguments and PromptVersion.
func BuildPrompt(jd, cv NormalizedText, mode PromptMode) (PromptPair, error) {
	if strings.TrimSpace(jd.String()) == "" || strings.TrimSpace(cv.String()) == "" {
		return PromptPair{}, ErrEmptyInput
	}

	system := strings.ReplaceAll(strings.TrimSpace(systemTemplate), "{{SCHEMA}}", schemaBlock())

	// A single pass keeps placeholder-looking text inside the JD from being expanded by the CV.
	user := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", jd.String(),
		"{{CANDIDATE_CV}}", cv.String(),
	).Replace(strings.TrimSpace(userTemplate))

	switch mode {
	case "", ModeSplit:
		return PromptPair{Mode: ModeSplit, System: system, User: user}, nil
	case ModeCombined:
		return PromptPair{Mode: ModeCombined, User: system + "\n\n" + user}, nil
	default:
		return PromptPair{}, fmt.Errorf("unknown prompt mode %q", mode)
	}
}

func schemaBlock() string {
	var b strings.Builder
	for i, f := range Fields {
		if i > 0 {
			b.WriteString("\n")
		}
		shape := "string"
		if f.Shape == ShapeList {
			shape = "list of short strings"
		}
		fmt.Fprintf(&b, "- %q (%s): %s", f.Key, shape, f.Guidance)
	}
	return b.String()
}
