package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/prep-brief/internal/prep"
)

func TestRenderBrief(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "brief.json")
	doc := `{"role_summary": ["Backend engineer", "payments"], "top_required_skills": ["Go"], "notes": "kept"}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write brief: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	var stdout bytes.Buffer

	if err := renderBrief(path, "", &stdout, zap.New(core)); err != nil {
		t.Fatalf("renderBrief returned error: %v", err)
	}

	got := stdout.String()
	if !strings.HasPrefix(got, prep.BriefHeading) {
		t.Fatalf("unexpected markdown:\n%s", got)
	}
	if !strings.Contains(got, "Backend engineer\npayments") {
		t.Fatalf("list role summary was not joined:\n%s", got)
	}
	if !strings.Contains(got, "- Go") {
		t.Fatalf("skills were not rendered:\n%s", got)
	}

	if logs.FilterMessage("brief does not match the schema").Len() == 0 {
		t.Fatalf("expected a schema warning for the list role summary")
	}
	if logs.FilterMessage("brief is missing keys").Len() != 1 {
		t.Fatalf("expected a missing keys warning")
	}
}

func TestRenderBrief_WritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "brief.json")
	if err := os.WriteFile(path, []byte(`{"role_summary": "SRE"}`), 0o600); err != nil {
		t.Fatalf("write brief: %v", err)
	}

	var stdout bytes.Buffer
	out := filepath.Join(dir, "rendered", "brief.md")

	if err := renderBrief(path, out, &stdout, zap.NewNop()); err != nil {
		t.Fatalf("renderBrief returned error: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("nothing must be printed when writing to a file")
	}

	md, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	want := prep.BriefHeading + "\n\n## Role Summary\n\nSRE\n"
	if string(md) != want {
		t.Fatalf("unexpected markdown:\n%q\nwant:\n%q", md, want)
	}
}

func TestRenderBrief_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notJSON := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(notJSON, []byte("plain notes"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), notJSON} {
		if err := renderBrief(path, "", &bytes.Buffer{}, zap.NewNop()); err == nil {
			t.Fatalf("expected error for %s", path)
		}
	}
}
