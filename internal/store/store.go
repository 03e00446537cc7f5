// Package store persists append-only NDJSON record logs.
//
// A log is a UTF-8 text file holding one JSON record per line. Mutations are
// modeled as appends: routine updates add a line rather than editing in
// place, which is what makes version history exist at all. "Current state"
// is derived on read by folding the log with Dedup. All writes go through a
// temp-file-then-rename sequence so readers never observe a partially
// written file.
//
// The store takes no locks. Callers wrap read-modify-append sequences in a
// lockfile critical section; unlocked readers tolerate transiently stale or
// merge-duplicated data and rely on the dedup rules for correctness.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Identified is a record with a stable identity.
type Identified interface {
	RecordID() string
}

// Versioned is a record whose identity carries a version counter.
type Versioned interface {
	Identified
	RecordVersion() int
}

// ReadAll parses every well-formed line of the log at path. Malformed lines
// are skipped, never fatal: one bad union-merge artifact must not block
// access to the rest of the log (integrity reporting is the doctor's job).
// A missing file yields an empty result.
func ReadAll[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []T
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Debug("skipping malformed record line",
				"path", path,
				"line", i+1,
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteAll replaces the log at path with the given records, one per line.
// This is the full-rewrite path used by compaction; routine mutation goes
// through Append.
func WriteAll[T any](path string, records []T) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := marshalLine(rec)
		if err != nil {
			return err
		}
		buf.Write(line)
	}
	return writeAtomic(path, buf.Bytes())
}

// Append adds one serialized record line to the log at path, creating the
// file if absent. The existing bytes are carried over verbatim, malformed
// lines included, then the whole file is rewritten atomically.
func Append[T any](path string, record T) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	line, err := marshalLine(record)
	if err != nil {
		return err
	}

	if n := len(existing); n > 0 && existing[n-1] != '\n' {
		existing = append(existing, '\n')
	}
	return writeAtomic(path, append(existing, line...))
}

// Dedup folds an append log down to current state: one record per identity,
// keeping the highest version seen. Equal versions break toward the later
// occurrence, which matters after a union merge duplicates lines. Output
// order follows each identity's first appearance.
func Dedup[T Versioned](records []T) []T {
	index := make(map[string]int, len(records))
	out := make([]T, 0, len(records))
	for _, rec := range records {
		at, ok := index[rec.RecordID()]
		if !ok {
			index[rec.RecordID()] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.RecordVersion() >= out[at].RecordVersion() {
			out[at] = rec
		}
	}
	return out
}

// DedupLast keeps strictly the last occurrence per identity, the rule for
// record types without meaningful version semantics (schemas).
func DedupLast[T Identified](records []T) []T {
	index := make(map[string]int, len(records))
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if at, ok := index[rec.RecordID()]; ok {
			out[at] = rec
			continue
		}
		index[rec.RecordID()] = len(out)
		out = append(out, rec)
	}
	return out
}

// VersionsOf returns every line for the given identity, collapsed to one
// record per exact version (last occurrence wins) and sorted ascending by
// version regardless of on-disk order.
func VersionsOf[T Versioned](records []T, id string) []T {
	index := make(map[int]int)
	var out []T
	for _, rec := range records {
		if rec.RecordID() != id {
			continue
		}
		if at, ok := index[rec.RecordVersion()]; ok {
			out[at] = rec
			continue
		}
		index[rec.RecordVersion()] = len(out)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordVersion() < out[j].RecordVersion()
	})
	return out
}

func marshalLine[T any](record T) ([]byte, error) {
	line, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return append(line, '\n'), nil
}

// writeAtomic writes data to a fresh temp file in the target's directory and
// renames it over the target. Rename on the same filesystem is atomic, so
// the old content stays intact until the new file fully replaces it. A temp
// file orphaned by a failure partway through is accepted residue, not rolled
// back.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
