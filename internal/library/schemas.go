package library

import (
	"context"
	"fmt"
	"sort"

	"github.com/folio-sh/folio/internal/store"
	"github.com/folio-sh/folio/internal/types"
	"github.com/folio-sh/folio/internal/validate"
)

// Schemas returns the effective schema set, sorted by id. The schema log is
// last-write-wins per id, with no version history.
func (l *Library) Schemas() ([]types.Schema, error) {
	records, err := store.ReadAll[types.Schema](l.schemasPath)
	if err != nil {
		return nil, err
	}
	out := store.DedupLast(records)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetSchema returns the effective schema with the given id.
func (l *Library) GetSchema(id string) (*types.Schema, error) {
	schemas, err := l.Schemas()
	if err != nil {
		return nil, err
	}
	for i := range schemas {
		if schemas[i].ID == id {
			return &schemas[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
}

// SetSchema appends a schema definition, which immediately becomes the
// effective one for its id. Rule patterns must compile.
func (l *Library) SetSchema(ctx context.Context, schema types.Schema) (*types.Schema, error) {
	if err := validName(schema.ID); err != nil {
		return nil, err
	}
	if err := validate.CheckPatterns(schema); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	schema.UpdatedAt = l.now()
	err := l.locker.WithLock(ctx, l.schemasPath, func() error {
		return store.Append(l.schemasPath, schema)
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("stored schema", "id", schema.ID)
	return &schema, nil
}

// DeleteSchema rewrites the schema log without the given id.
func (l *Library) DeleteSchema(ctx context.Context, id string) error {
	err := l.locker.WithLock(ctx, l.schemasPath, func() error {
		records, err := store.ReadAll[types.Schema](l.schemasPath)
		if err != nil {
			return err
		}

		kept := make([]types.Schema, 0, len(records))
		found := false
		for _, s := range store.DedupLast(records) {
			if s.ID == id {
				found = true
				continue
			}
			kept = append(kept, s)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
		}
		return store.WriteAll(l.schemasPath, kept)
	})
	if err != nil {
		return err
	}
	l.logger.Info("deleted schema", "id", id)
	return nil
}

// Validate resolves the named prompt and checks the result against the
// schema with the given id.
func (l *Library) Validate(name, schemaID string) ([]validate.Violation, error) {
	res, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	schema, err := l.GetSchema(schemaID)
	if err != nil {
		return nil, err
	}
	return validate.Check(*schema, res.Sections), nil
}
