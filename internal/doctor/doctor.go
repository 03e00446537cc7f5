// Package doctor inspects a folio store for damage the normal read path
// papers over: unparseable lines, records that lost required fields,
// duplicate or regressing versions, broken inheritance, and abandoned lock
// markers. It reads raw lines itself instead of going through the store's
// tolerant reader, because the whole point is to surface what that reader
// skips.
package doctor

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/folio-sh/folio/internal/lockfile"
	"github.com/folio-sh/folio/internal/resolve"
	"github.com/folio-sh/folio/internal/store"
	"github.com/folio-sh/folio/internal/types"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Report is the full result of a store inspection.
type Report struct {
	Prompts    PromptLog   `json:"prompts" yaml:"prompts"`
	Schemas    SchemaLog   `json:"schemas" yaml:"schemas"`
	StaleLocks []StaleLock `json:"staleLocks,omitempty" yaml:"staleLocks,omitempty"`
	Healthy    bool        `json:"healthy" yaml:"healthy"`
}

// PromptLog summarizes the prompt record log.
type PromptLog struct {
	Path         string         `json:"path" yaml:"path"`
	Exists       bool           `json:"exists" yaml:"exists"`
	Lines        int            `json:"lines" yaml:"lines"`
	Records      int            `json:"records" yaml:"records"`
	Current      int            `json:"current" yaml:"current"`
	Malformed    int            `json:"malformed" yaml:"malformed"`
	Invalid      int            `json:"invalid" yaml:"invalid"`
	Duplicates   int            `json:"duplicates" yaml:"duplicates"`
	Regressions  []string       `json:"regressions,omitempty" yaml:"regressions,omitempty"`
	Unresolvable []Unresolvable `json:"unresolvable,omitempty" yaml:"unresolvable,omitempty"`
}

// SchemaLog summarizes the schema record log.
type SchemaLog struct {
	Path      string `json:"path" yaml:"path"`
	Exists    bool   `json:"exists" yaml:"exists"`
	Lines     int    `json:"lines" yaml:"lines"`
	Records   int    `json:"records" yaml:"records"`
	Malformed int    `json:"malformed" yaml:"malformed"`
	Invalid   int    `json:"invalid" yaml:"invalid"`
}

// Unresolvable names a current prompt whose inheritance chain cannot be
// composed.
type Unresolvable struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// StaleLock reports a lock marker older than the stale threshold.
type StaleLock struct {
	Path string `json:"path" yaml:"path"`
	Age  string `json:"age" yaml:"age"`
}

// Run inspects the prompt and schema logs at the given paths. stale bounds
// how old a lock marker may be before it is reported; zero uses the
// lockfile default.
func Run(promptsPath, schemasPath string, stale time.Duration) (*Report, error) {
	if stale <= 0 {
		stale = lockfile.DefaultStale
	}

	promptSchema, err := compiledSchema("prompt")
	if err != nil {
		return nil, err
	}
	schemaSchema, err := compiledSchema("schema")
	if err != nil {
		return nil, err
	}

	report := &Report{}

	if err := report.scanPrompts(promptsPath, promptSchema); err != nil {
		return nil, err
	}
	if err := report.scanSchemas(schemasPath, schemaSchema); err != nil {
		return nil, err
	}

	for _, path := range []string{promptsPath, schemasPath} {
		marker := lockfile.MarkerPath(path)
		fi, err := os.Stat(marker)
		if err != nil {
			continue
		}
		if age := time.Since(fi.ModTime()); age > stale {
			report.StaleLocks = append(report.StaleLocks, StaleLock{
				Path: marker,
				Age:  age.Round(time.Second).String(),
			})
		}
	}

	report.Healthy = report.Prompts.Malformed == 0 &&
		report.Prompts.Invalid == 0 &&
		report.Prompts.Duplicates == 0 &&
		len(report.Prompts.Regressions) == 0 &&
		len(report.Prompts.Unresolvable) == 0 &&
		report.Schemas.Malformed == 0 &&
		report.Schemas.Invalid == 0 &&
		len(report.StaleLocks) == 0

	return report, nil
}

func (r *Report) scanPrompts(path string, schema *jsonschema.Schema) error {
	r.Prompts.Path = path

	lines, exists, err := readLines(path)
	if err != nil {
		return err
	}
	r.Prompts.Exists = exists
	if !exists {
		return nil
	}

	var valid []types.Prompt
	seen := make(map[string]bool)
	lastVersion := make(map[string]int)
	regressed := make(map[string]bool)

	for _, line := range lines {
		r.Prompts.Lines++

		var doc any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			r.Prompts.Malformed++
			continue
		}
		if err := schema.Validate(doc); err != nil {
			r.Prompts.Invalid++
			continue
		}

		var p types.Prompt
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			r.Prompts.Invalid++
			continue
		}
		r.Prompts.Records++
		valid = append(valid, p)

		key := fmt.Sprintf("%s@%d", p.ID, p.Version)
		if seen[key] {
			r.Prompts.Duplicates++
		}
		seen[key] = true

		if last, ok := lastVersion[p.ID]; ok && p.Version < last {
			regressed[p.ID] = true
		}
		lastVersion[p.ID] = p.Version
	}

	for id := range regressed {
		r.Prompts.Regressions = append(r.Prompts.Regressions, id)
	}
	sort.Strings(r.Prompts.Regressions)

	current := store.Dedup(valid)
	r.Prompts.Current = len(current)

	checked := make(map[string]bool)
	for _, p := range current {
		if checked[p.Name] {
			continue
		}
		checked[p.Name] = true
		if _, err := resolve.Resolve(p.Name, valid); err != nil {
			r.Prompts.Unresolvable = append(r.Prompts.Unresolvable, Unresolvable{
				Name:   p.Name,
				Reason: err.Error(),
			})
		}
	}
	sort.Slice(r.Prompts.Unresolvable, func(i, j int) bool {
		return r.Prompts.Unresolvable[i].Name < r.Prompts.Unresolvable[j].Name
	})

	return nil
}

func (r *Report) scanSchemas(path string, schema *jsonschema.Schema) error {
	r.Schemas.Path = path

	lines, exists, err := readLines(path)
	if err != nil {
		return err
	}
	r.Schemas.Exists = exists
	if !exists {
		return nil
	}

	ids := make(map[string]bool)
	for _, line := range lines {
		r.Schemas.Lines++

		var doc any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			r.Schemas.Malformed++
			continue
		}
		if err := schema.Validate(doc); err != nil {
			r.Schemas.Invalid++
			continue
		}

		var s types.Schema
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			r.Schemas.Invalid++
			continue
		}
		ids[s.ID] = true
	}
	r.Schemas.Records = len(ids)

	return nil
}

// readLines returns the non-blank lines of path, or exists=false when the
// file is absent.
func readLines(path string) ([]string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, true, nil
}

// compiledSchema loads and compiles an embedded record schema by name.
func compiledSchema(name string) (*jsonschema.Schema, error) {
	filename := fmt.Sprintf("schemas/%s.json", name)
	content, err := schemaFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read record schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to load record schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema %s: %w", name, err)
	}
	return schema, nil
}
