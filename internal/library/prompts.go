package library

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/folio-sh/folio/internal/resolve"
	"github.com/folio-sh/folio/internal/store"
	"github.com/folio-sh/folio/internal/types"
)

// ListFilter narrows List results.
type ListFilter struct {
	// Status keeps only records with this exact status when set.
	Status types.Status
	// All includes archived records, which are hidden by default.
	All bool
}

// List returns the current version of every document, sorted by name.
func (l *Library) List(filter ListFilter) ([]types.Prompt, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}

	var out []types.Prompt
	for _, p := range store.Dedup(records) {
		switch {
		case filter.Status != "":
			if p.Status != filter.Status {
				continue
			}
		case !filter.All && p.Status == types.StatusArchived:
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// Get returns the current version of the document named name.
func (l *Library) Get(name string) (*types.Prompt, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}
	p, ok := currentByName(store.Dedup(records), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &p, nil
}

// GetVersion returns the exact (name, version) record from the history,
// including versions that have since been superseded.
func (l *Library) GetVersion(name string, version int) (*types.Prompt, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}
	var match *types.Prompt
	for i, p := range records {
		if p.Name == name && p.Version == version {
			match = &records[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s version %d", ErrNotFound, name, version)
	}
	return match, nil
}

// Versions returns every version of the document currently named name, in
// ascending version order.
func (l *Library) Versions(name string) ([]types.Prompt, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}
	p, ok := currentByName(store.Dedup(records), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return store.VersionsOf(records, p.ID), nil
}

// Resolve composes the named prompt's sections through its extends chain,
// honoring a pin on the requested record.
func (l *Library) Resolve(name string) (*resolve.Result, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}
	return resolve.Resolve(name, records)
}

// ResolveAt composes an exact historical version, ignoring pins.
func (l *Library) ResolveAt(name string, version int) (*resolve.Result, error) {
	records, err := store.ReadAll[types.Prompt](l.promptsPath)
	if err != nil {
		return nil, err
	}
	return resolve.ResolveAt(name, version, records)
}

// Create appends version 1 of a new document. The name must not be in use
// by any current record, archived ones included.
func (l *Library) Create(ctx context.Context, name string, sections []types.Section, extends string) (*types.Prompt, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if sections == nil {
		sections = []types.Section{}
	}

	var out *types.Prompt
	err := l.locker.WithLock(ctx, l.promptsPath, func() error {
		records, err := store.ReadAll[types.Prompt](l.promptsPath)
		if err != nil {
			return err
		}
		current := store.Dedup(records)

		if _, ok := currentByName(current, name); ok {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		if extends != "" {
			if _, ok := currentByName(current, extends); !ok {
				return fmt.Errorf("parent %w: %s", ErrNotFound, extends)
			}
		}

		now := l.now()
		p := types.Prompt{
			ID:        l.newID(),
			Name:      name,
			Version:   1,
			Sections:  sections,
			Extends:   extends,
			Status:    types.StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if extends != "" {
			if _, err := resolve.ResolveAt(name, 1, append(records, p)); err != nil {
				return err
			}
		}

		if err := store.Append(l.promptsPath, p); err != nil {
			return err
		}
		l.logger.Info("created prompt", "name", name, "id", p.ID)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetSection appends a new version with the named section's body replaced,
// or with the section added at the end if it is new. An empty body is stored
// as-is and acts as a removal marker during resolution.
func (l *Library) SetSection(ctx context.Context, name, section, body string) (*types.Prompt, error) {
	if section == "" {
		return nil, fmt.Errorf("%w: section name is empty", ErrInvalidName)
	}
	return l.appendNext(ctx, name, func(_ []types.Prompt, next *types.Prompt) error {
		for i := range next.Sections {
			if next.Sections[i].Name == section {
				next.Sections[i].Body = body
				return nil
			}
		}
		next.Sections = append(next.Sections, types.Section{Name: section, Body: body})
		return nil
	})
}

// RemoveSection appends a new version without the named section. Removing a
// section the record does not have is an error rather than a wasted version.
func (l *Library) RemoveSection(ctx context.Context, name, section string) (*types.Prompt, error) {
	return l.appendNext(ctx, name, func(_ []types.Prompt, next *types.Prompt) error {
		for i := range next.Sections {
			if next.Sections[i].Name == section {
				next.Sections = append(next.Sections[:i], next.Sections[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("section %q not found on %s", section, name)
	})
}

// Rename appends a new version under a different name. Children extending
// the old name are deliberately left pointing at it; a rename breaks
// inheritance explicitly.
func (l *Library) Rename(ctx context.Context, name, newName string) (*types.Prompt, error) {
	if err := validName(newName); err != nil {
		return nil, err
	}
	if newName == name {
		return nil, errors.New("new name matches current name")
	}
	return l.appendNext(ctx, name, func(records []types.Prompt, next *types.Prompt) error {
		if other, ok := currentByName(store.Dedup(records), newName); ok && other.ID != next.ID {
			return fmt.Errorf("%w: %s", ErrExists, newName)
		}
		next.Name = newName
		return nil
	})
}

// SetExtends appends a new version pointing at a different parent, or at no
// parent when parent is empty. The resulting chain must resolve, so cycles,
// excessive depth, and missing ancestors are rejected before anything is
// written.
func (l *Library) SetExtends(ctx context.Context, name, parent string) (*types.Prompt, error) {
	return l.appendNext(ctx, name, func(records []types.Prompt, next *types.Prompt) error {
		if parent != "" {
			if _, ok := currentByName(store.Dedup(records), parent); !ok {
				return fmt.Errorf("parent %w: %s", ErrNotFound, parent)
			}
		}
		next.Extends = parent
		if parent != "" {
			if _, err := resolve.ResolveAt(next.Name, next.Version, append(records, *next)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetStatus appends a new version with the given lifecycle status.
func (l *Library) SetStatus(ctx context.Context, name string, status types.Status) (*types.Prompt, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return l.appendNext(ctx, name, func(_ []types.Prompt, next *types.Prompt) error {
		next.Status = status
		return nil
	})
}

// Archive soft-deletes a document. The history stays in the log; archived
// records are only hidden from default listings.
func (l *Library) Archive(ctx context.Context, name string) (*types.Prompt, error) {
	return l.SetStatus(ctx, name, types.StatusArchived)
}

// Pin appends a new version that tells consumers to resolve this document at
// the given existing version instead of its latest.
func (l *Library) Pin(ctx context.Context, name string, version int) (*types.Prompt, error) {
	return l.appendNext(ctx, name, func(records []types.Prompt, next *types.Prompt) error {
		for _, v := range store.VersionsOf(records, next.ID) {
			if v.Version == version {
				next.Pinned = version
				return nil
			}
		}
		return fmt.Errorf("%w: %s version %d", ErrNotFound, name, version)
	})
}

// Unpin appends a new version that clears the pin.
func (l *Library) Unpin(ctx context.Context, name string) (*types.Prompt, error) {
	return l.appendNext(ctx, name, func(_ []types.Prompt, next *types.Prompt) error {
		next.Pinned = 0
		return nil
	})
}

// Import writes a document parsed from markdown. An unknown name becomes a
// new version-1 document; a known name gets a full replacement version with
// the imported sections, parent, status, and pin. Returns whether a new
// document was created.
func (l *Library) Import(ctx context.Context, name string, sections []types.Section, extends string, status types.Status, pinned int) (*types.Prompt, bool, error) {
	if err := validName(name); err != nil {
		return nil, false, err
	}
	if !status.Valid() {
		return nil, false, fmt.Errorf("invalid status %q", status)
	}
	if sections == nil {
		sections = []types.Section{}
	}

	var out *types.Prompt
	created := false
	err := l.locker.WithLock(ctx, l.promptsPath, func() error {
		records, err := store.ReadAll[types.Prompt](l.promptsPath)
		if err != nil {
			return err
		}
		current := store.Dedup(records)

		if extends != "" {
			if _, ok := currentByName(current, extends); !ok {
				return fmt.Errorf("parent %w: %s", ErrNotFound, extends)
			}
		}

		now := l.now()
		var next types.Prompt
		if cur, ok := currentByName(current, name); ok {
			next = cur.Clone()
			next.Version = cur.Version + 1
			next.Sections = sections
			next.Extends = extends
			next.Status = status
			next.Pinned = pinned
			next.UpdatedAt = now
		} else {
			created = true
			next = types.Prompt{
				ID:        l.newID(),
				Name:      name,
				Version:   1,
				Sections:  sections,
				Extends:   extends,
				Status:    status,
				Pinned:    pinned,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		if extends != "" {
			if _, err := resolve.ResolveAt(name, next.Version, append(records, next)); err != nil {
				return err
			}
		}

		if err := store.Append(l.promptsPath, next); err != nil {
			return err
		}
		l.logger.Info("imported prompt", "name", name, "version", next.Version, "created", created)
		out = &next
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// Compact rewrites the prompt log so it contains only the current version of
// each document. History, superseded duplicates, and unparseable lines are
// all dropped, which is the one operation that loses them.
func (l *Library) Compact(ctx context.Context) (kept, dropped int, err error) {
	err = l.locker.WithLock(ctx, l.promptsPath, func() error {
		records, err := store.ReadAll[types.Prompt](l.promptsPath)
		if err != nil {
			return err
		}
		current := store.Dedup(records)
		if err := store.WriteAll(l.promptsPath, current); err != nil {
			return err
		}
		kept = len(current)
		dropped = len(records) - len(current)
		l.logger.Info("compacted prompt log", "kept", kept, "dropped", dropped)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return kept, dropped, nil
}

// appendNext runs fn under the prompt log lock with the next version of the
// document named name, then appends whatever fn leaves in it.
func (l *Library) appendNext(ctx context.Context, name string, fn func(records []types.Prompt, next *types.Prompt) error) (*types.Prompt, error) {
	var out *types.Prompt
	err := l.locker.WithLock(ctx, l.promptsPath, func() error {
		records, err := store.ReadAll[types.Prompt](l.promptsPath)
		if err != nil {
			return err
		}
		cur, ok := currentByName(store.Dedup(records), name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		next := cur.Clone()
		next.Version = cur.Version + 1
		next.UpdatedAt = l.now()
		if err := fn(records, &next); err != nil {
			return err
		}

		if err := store.Append(l.promptsPath, next); err != nil {
			return err
		}
		l.logger.Debug("appended prompt version", "name", next.Name, "version", next.Version)
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
