package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/prep-brief/internal/ai/gemini"
	"github.com/spigell/prep-brief/internal/ai/openai"
	"github.com/spigell/prep-brief/internal/prep"
)

const fullResponse = "Here is your brief:\n```json\n" + `{
  "role_summary": "Backend engineer owning payment services.",
  "top_required_skills": ["Go", "PostgreSQL"],
  "strong_overlaps": ["Five years of Go services"],
  "gaps_and_risks": ["No Kafka experience"],
  "likely_tech_questions": ["How do you design idempotent handlers?"],
  "behavioral_questions": ["Tell me about an outage you handled."],
  "talking_points": ["Migration to event sourcing"],
  "quick_upskilling_plan": ["Day 1: Kafka consumer groups"]
}` + "\n```"

type stubInvoker struct {
	raw   string
	err   error
	calls int
}

func (s *stubInvoker) Invoke(_ context.Context, _ prep.PromptPair, _ string) (string, error) {
	s.calls++
	return s.raw, s.err
}

type harness struct {
	gen     *generator
	invoker *stubInvoker
	aiCfg   AIConfig
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	logs    *observer.ObservedLogs
	dir     string
	cvPath  string
}

func newHarness(t *testing.T, raw string) *harness {
	t.Helper()

	dir := t.TempDir()
	cvPath := filepath.Join(dir, "cv.txt")
	cv := strings.Repeat("Built Go microservices and Kubernetes operators for payments. ", 10)
	if err := os.WriteFile(cvPath, []byte(cv), 0o600); err != nil {
		t.Fatalf("write cv: %v", err)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		invoker: &stubInvoker{raw: raw},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		logs:    logs,
		dir:     dir,
		cvPath:  cvPath,
	}

	h.gen = &generator{
		config: &Config{
			AI:    AIConfig{PromptMode: "split"},
			Input: InputConfig{MinLength: prep.DefaultMinLength},
		},
		logger: zap.New(core),
		newInvoker: func(_ context.Context, cfg AIConfig) (prep.Invoker, error) {
			h.aiCfg = cfg
			return h.invoker, nil
		},
		stdout: h.stdout,
		stderr: h.stderr,
	}

	return h
}

func (h *harness) options() generateOptions {
	return generateOptions{
		JDText: strings.Repeat("Senior Go engineer to build payment services with PostgreSQL and Kafka. ", 5),
		CV:     h.cvPath,
		Out:    filepath.Join(h.dir, "out", "brief"),
	}
}

func (h *harness) outputFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(h.dir, "out"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestGenerator_WritesBrief(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fullResponse)

	if err := h.gen.run(context.Background(), h.options()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if h.invoker.calls != 1 {
		t.Fatalf("expected one model call, got %d", h.invoker.calls)
	}
	if h.aiCfg.Provider != openai.ProviderName || h.aiCfg.Model != openai.DefaultModel {
		t.Fatalf("unexpected provider/model %q/%q", h.aiCfg.Provider, h.aiCfg.Model)
	}

	data, err := os.ReadFile(filepath.Join(h.dir, "out", "brief.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if err := prep.ValidateDocument(data); err != nil {
		t.Fatalf("written record does not match the schema: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(h.dir, "out", "brief.md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.HasPrefix(string(md), prep.BriefHeading) {
		t.Fatalf("markdown does not start with the heading: %q", md)
	}
	if h.stdout.String() != string(md) {
		t.Fatalf("stdout differs from the written markdown")
	}
	if h.stderr.Len() != 0 {
		t.Fatalf("unexpected warning: %q", h.stderr.String())
	}

	if h.logs.FilterMessage("brief written").Len() != 1 {
		t.Fatalf("expected a 'brief written' log entry")
	}
}

func TestGenerator_NoStdout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fullResponse)
	opts := h.options()
	opts.NoStdout = true

	if err := h.gen.run(context.Background(), opts); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", h.stdout.String())
	}
	if got := h.outputFiles(t); len(got) != 2 {
		t.Fatalf("expected two files, got %v", got)
	}
}

func TestGenerator_WarnsAboutMissingKeys(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `{"role_summary": "Platform engineer", "talking_points": "Led the migration"}`)

	if err := h.gen.run(context.Background(), h.options()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	warning := h.stderr.String()
	if !strings.Contains(warning, "missing keys") || !strings.Contains(warning, prep.KeyTopRequiredSkills) {
		t.Fatalf("expected a missing keys warning, got %q", warning)
	}
	if strings.Contains(warning, prep.KeyTalkingPoints) {
		t.Fatalf("talking_points was present and must not be reported: %q", warning)
	}
	if !strings.Contains(h.stdout.String(), "- Led the migration") {
		t.Fatalf("string value was not rendered as a one item list:\n%s", h.stdout.String())
	}
}

func TestGenerator_MalformedResponseWritesNothing(t *testing.T) {
	t.Parallel()

	raw := "I am sorry, I cannot produce a brief for this candidate."
	h := newHarness(t, raw)

	err := h.gen.run(context.Background(), h.options())
	if !errors.Is(err, prep.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}

	if got := h.outputFiles(t); len(got) != 0 {
		t.Fatalf("no files must be written, found %v", got)
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("nothing must be printed, got %q", h.stdout.String())
	}

	entries := h.logs.FilterMessage("unparseable model output").All()
	if len(entries) != 1 {
		t.Fatalf("expected the raw output to be logged once, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("raw output must be logged at debug, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["raw"] != raw {
		t.Fatalf("unexpected raw field: %v", entries[0].ContextMap()["raw"])
	}
}

func TestGenerator_InvokerFailureWritesNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	h.invoker.err = errors.New("connection refused")

	if err := h.gen.run(context.Background(), h.options()); err == nil {
		t.Fatalf("expected error")
	}
	if got := h.outputFiles(t); len(got) != 0 {
		t.Fatalf("no files must be written, found %v", got)
	}
}

func TestGenerator_ShortInputSkipsModel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fullResponse)
	opts := h.options()
	opts.JDText = "Go developer"

	err := h.gen.run(context.Background(), opts)
	if !errors.Is(err, prep.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.invoker.calls != 0 {
		t.Fatalf("model must not be called, got %d calls", h.invoker.calls)
	}
	if got := h.outputFiles(t); len(got) != 0 {
		t.Fatalf("no files must be written, found %v", got)
	}
}

func TestGenerator_ProviderSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       AIConfig
		wantModel string
		wantErr   bool
	}{
		{name: "provider default model", cfg: AIConfig{Provider: "Gemini"}, wantModel: gemini.DefaultModel},
		{name: "explicit model", cfg: AIConfig{Provider: "openai", Model: "gpt-4.1"}, wantModel: "gpt-4.1"},
		{name: "unknown provider", cfg: AIConfig{Provider: "llama"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, fullResponse)
			h.gen.config.AI = tt.cfg

			err := h.gen.run(context.Background(), h.options())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if h.invoker.calls != 0 {
					t.Fatalf("model must not be called")
				}
				return
			}
			if err != nil {
				t.Fatalf("run returned error: %v", err)
			}
			if h.aiCfg.Model != tt.wantModel {
				t.Fatalf("expected model %q, got %q", tt.wantModel, h.aiCfg.Model)
			}
		})
	}
}

func TestGenerator_RejectsBadOutputTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fullResponse)
	opts := h.options()
	opts.Out = "s3://bucket-only"

	if err := h.gen.run(context.Background(), opts); err == nil {
		t.Fatalf("expected error")
	}
	if h.invoker.calls != 0 {
		t.Fatalf("model must not be called for an invalid output target")
	}
}
