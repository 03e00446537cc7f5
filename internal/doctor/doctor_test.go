package doctor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/folio-sh/folio/internal/types"
)

func rec(id, name string, version int, extends string) types.Prompt {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return types.Prompt{
		ID:        id,
		Name:      name,
		Version:   version,
		Extends:   extends,
		Status:    types.StatusDraft,
		Sections:  []types.Section{{Name: "intro", Body: "hi"}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// writeLog writes one line per record. Strings pass through raw so tests can
// plant malformed lines.
func writeLog(t *testing.T, path string, records ...any) {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range records {
		switch v := r.(type) {
		case string:
			buf.WriteString(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal record: %v", err)
			}
			buf.Write(data)
		}
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRun_MissingFilesAreHealthy(t *testing.T) {
	dir := t.TempDir()

	report, err := Run(filepath.Join(dir, "prompts.ndjson"), filepath.Join(dir, "schemas.ndjson"), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Prompts.Exists || report.Schemas.Exists {
		t.Error("expected both logs to be reported absent")
	}
	if !report.Healthy {
		t.Error("an empty store should be healthy")
	}
}

func TestRun_HealthyStore(t *testing.T) {
	dir := t.TempDir()
	prompts := filepath.Join(dir, "prompts.ndjson")
	schemas := filepath.Join(dir, "schemas.ndjson")

	writeLog(t, prompts,
		rec("p1", "base", 1, ""),
		rec("p1", "base", 2, ""),
		rec("p2", "child", 1, "base"),
	)
	writeLog(t, schemas, types.Schema{
		ID:        "default",
		Required:  []string{"intro"},
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	report, err := Run(prompts, schemas, 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Prompts.Lines != 3 || report.Prompts.Records != 3 {
		t.Errorf("prompts lines/records = %d/%d, want 3/3", report.Prompts.Lines, report.Prompts.Records)
	}
	if report.Prompts.Current != 2 {
		t.Errorf("current = %d, want 2", report.Prompts.Current)
	}
	if report.Schemas.Records != 1 {
		t.Errorf("schema records = %d, want 1", report.Schemas.Records)
	}
	if !report.Healthy {
		t.Errorf("expected healthy report, got %+v", report)
	}
}

func TestRun_CountsMalformedAndInvalid(t *testing.T) {
	dir := t.TempDir()
	prompts := filepath.Join(dir, "prompts.ndjson")

	writeLog(t, prompts,
		rec("p1", "base", 1, ""),
		`{this is not json`,
		`{"id":"p2","version":1}`,
	)

	report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Prompts.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", report.Prompts.Malformed)
	}
	if report.Prompts.Invalid != 1 {
		t.Errorf("invalid = %d, want 1", report.Prompts.Invalid)
	}
	if report.Prompts.Records != 1 {
		t.Errorf("records = %d, want 1", report.Prompts.Records)
	}
	if report.Healthy {
		t.Error("damaged log should not be healthy")
	}
}

func TestRun_FlagsDuplicatesAndRegressions(t *testing.T) {
	t.Run("duplicate id and version", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts,
			rec("p1", "base", 1, ""),
			rec("p1", "base", 1, ""),
		)

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), 0)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if report.Prompts.Duplicates != 1 {
			t.Errorf("duplicates = %d, want 1", report.Prompts.Duplicates)
		}
		if len(report.Prompts.Regressions) != 0 {
			t.Errorf("regressions = %v, want none", report.Prompts.Regressions)
		}
	})

	t.Run("version going backwards", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts,
			rec("p1", "base", 2, ""),
			rec("p1", "base", 1, ""),
		)

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), 0)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.Prompts.Regressions) != 1 || report.Prompts.Regressions[0] != "p1" {
			t.Errorf("regressions = %v, want [p1]", report.Prompts.Regressions)
		}
		if report.Healthy {
			t.Error("regressing log should not be healthy")
		}
	})
}

func TestRun_FlagsUnresolvableChains(t *testing.T) {
	t.Run("missing parent", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts, rec("p1", "child", 1, "ghost"))

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), 0)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.Prompts.Unresolvable) != 1 {
			t.Fatalf("unresolvable = %v, want 1 entry", report.Prompts.Unresolvable)
		}
		got := report.Prompts.Unresolvable[0]
		if got.Name != "child" || !strings.Contains(got.Reason, "ghost") {
			t.Errorf("unresolvable = %+v, want child blaming ghost", got)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts,
			rec("p1", "a", 1, "b"),
			rec("p2", "b", 1, "a"),
		)

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), 0)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.Prompts.Unresolvable) != 2 {
			t.Errorf("unresolvable = %v, want both cycle members", report.Prompts.Unresolvable)
		}
	})
}

func TestRun_StaleLockMarkers(t *testing.T) {
	t.Run("old marker reported", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts, rec("p1", "base", 1, ""))

		marker := prompts + ".lock"
		if err := os.WriteFile(marker, nil, 0o644); err != nil {
			t.Fatalf("write marker: %v", err)
		}
		old := time.Now().Add(-2 * time.Minute)
		if err := os.Chtimes(marker, old, old); err != nil {
			t.Fatalf("age marker: %v", err)
		}

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), time.Minute)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.StaleLocks) != 1 || report.StaleLocks[0].Path != marker {
			t.Errorf("staleLocks = %+v, want %s", report.StaleLocks, marker)
		}
		if report.Healthy {
			t.Error("stale lock should not be healthy")
		}
	})

	t.Run("fresh marker ignored", func(t *testing.T) {
		dir := t.TempDir()
		prompts := filepath.Join(dir, "prompts.ndjson")
		writeLog(t, prompts, rec("p1", "base", 1, ""))

		if err := os.WriteFile(prompts+".lock", nil, 0o644); err != nil {
			t.Fatalf("write marker: %v", err)
		}

		report, err := Run(prompts, filepath.Join(dir, "schemas.ndjson"), time.Minute)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(report.StaleLocks) != 0 {
			t.Errorf("staleLocks = %+v, want none", report.StaleLocks)
		}
	})
}
