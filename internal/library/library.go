// Package library orchestrates folio's record operations. Every mutation
// follows the same shape: take the sidecar lock for the log being changed,
// read current state, append the next record, release. Reads never lock.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/folio-sh/folio/internal/home"
	"github.com/folio-sh/folio/internal/lockfile"
	"github.com/folio-sh/folio/internal/types"
)

// validNamePattern matches valid prompt and schema names (alphanumeric with
// dots, underscores, hyphens).
var validNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

var (
	// ErrNotFound is returned when no current record bears the requested name.
	ErrNotFound = errors.New("prompt not found")

	// ErrExists is returned when a create or rename would collide with a
	// name another document currently bears.
	ErrExists = errors.New("prompt already exists")

	// ErrInvalidName is returned for names that do not match validNamePattern.
	ErrInvalidName = errors.New("invalid name")

	// ErrSchemaNotFound is returned when no schema record has the requested id.
	ErrSchemaNotFound = errors.New("schema not found")
)

// Library provides access to the prompt and schema logs of one folio home.
type Library struct {
	promptsPath string
	schemasPath string
	locker      lockfile.Locker
	logger      *slog.Logger

	// Seams for tests
	now   func() time.Time
	newID func() string
}

// New creates a Library over the given home directory.
func New(dir *home.Dir, locker lockfile.Locker, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		promptsPath: dir.PromptsPath(),
		schemasPath: dir.SchemasPath(),
		locker:      locker,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// PromptsPath returns the path of the prompt record log.
func (l *Library) PromptsPath() string { return l.promptsPath }

// SchemasPath returns the path of the schema record log.
func (l *Library) SchemasPath() string { return l.schemasPath }

// currentByName picks the highest-version record currently bearing name from
// an already deduplicated record set. Version ties keep the later record.
func currentByName(current []types.Prompt, name string) (types.Prompt, bool) {
	var best types.Prompt
	found := false
	for _, p := range current {
		if p.Name != name {
			continue
		}
		if !found || p.Version >= best.Version {
			best = p
			found = true
		}
	}
	return best, found
}

func validName(name string) error {
	if !validNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a letter and contain only letters, digits, dots, underscores, and hyphens", ErrInvalidName, name)
	}
	return nil
}
