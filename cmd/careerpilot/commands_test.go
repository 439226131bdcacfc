package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yangwenmai/careerpilot/internal/model"
)

const fixture = `
users:
  - profile:
      user_id: u1
      full_name: Ada Lovelace
      summary: Analytical engine programmer.
    jobs:
      - id: 7
        title: Backend Engineer
        company: Acme Corp
        description: Go and SQL.
    skills:
      - {name: Go, years: 6}
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "test.db"))
	t.Setenv("AI_MOCK_MODE", "true")
	t.Setenv("BROWSER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CONFIG_FILE", "")

	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSeedThenGenerate(t *testing.T) {
	seed := setupEnv(t)

	out, err := execute(t, "seed", seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "imported 1 users") {
		t.Errorf("seed output = %q", out)
	}

	out, err = execute(t, "generate", "resume", "--user", "u1", "--job", "7")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	var a model.Artifact
	if err := json.Unmarshal([]byte(out), &a); err != nil {
		t.Fatalf("decode artifact: %v\n%s", err, out)
	}
	if a.Kind != model.KindResume || a.UserID != "u1" || !a.Metadata.Mock {
		t.Errorf("artifact = %+v", a)
	}
}

func TestGenerate_Errors(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "generate", "haiku", "--user", "u1"); err == nil {
		t.Error("unknown kind should fail")
	}
	if _, err := execute(t, "generate", "resume"); err == nil {
		t.Error("missing --user should fail")
	}

	out, err := execute(t, "generate", "resume", "--user", "u1")
	if err == nil {
		t.Fatal("resume without a job should fail")
	}
	if !strings.Contains(out, `"failed_step": "authorize"`) {
		t.Errorf("error output = %q", out)
	}
}

func TestSeed_MissingFile(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "seed", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing fixture file should fail")
	}
}
