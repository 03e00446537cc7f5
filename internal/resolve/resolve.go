// Package resolve composes a prompt's effective sections by walking its
// extends chain. Resolution is a pure function over a record set: parents
// merge first, children override, append, or remove section by section.
package resolve

import (
	"github.com/folio-sh/folio/internal/store"
	"github.com/folio-sh/folio/internal/types"
)

// MaxDepth is the largest number of records allowed in a single extends
// chain, counting both the root and the requested record.
const MaxDepth = 5

// Result is a fully merged prompt.
type Result struct {
	Sections     []types.Section `json:"sections" yaml:"sections"`
	ResolvedFrom []string        `json:"resolvedFrom" yaml:"resolvedFrom"`
	Version      int             `json:"version" yaml:"version"`
}

// Resolve merges the extends chain of the highest-version record named name.
// If that record carries a pin, the pinned version is resolved instead.
// Parents always resolve at their latest version regardless of pins.
func Resolve(name string, prompts []types.Prompt) (*Result, error) {
	current := store.Dedup(prompts)
	target, ok := latestByName(name, current)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if target.Pinned > 0 {
		pinned, ok := exactVersion(name, target.Pinned, prompts)
		if !ok {
			return nil, &NotFoundError{Name: name, Version: target.Pinned}
		}
		target = pinned
	}
	return resolveFrom(target, current)
}

// ResolveAt merges the extends chain of the exact (name, version) record,
// ignoring any pin on it. The version must exist in the record history.
func ResolveAt(name string, version int, prompts []types.Prompt) (*Result, error) {
	target, ok := exactVersion(name, version, prompts)
	if !ok {
		return nil, &NotFoundError{Name: name, Version: version}
	}
	return resolveFrom(target, store.Dedup(prompts))
}

// resolveFrom walks target's extends chain through the current record set,
// then folds sections from the root down to target.
func resolveFrom(target types.Prompt, current []types.Prompt) (*Result, error) {
	chain := []types.Prompt{target}
	names := []string{target.Name}

	node := target
	for node.Extends != "" {
		next := node.Extends
		for _, seen := range names {
			if seen == next {
				return nil, &CycleError{Chain: append(names, next)}
			}
		}
		if len(names)+1 > MaxDepth {
			return nil, &DepthError{Chain: append(names, next), Limit: MaxDepth}
		}
		parent, ok := latestByName(next, current)
		if !ok {
			return nil, &NotFoundError{Name: next}
		}
		chain = append(chain, parent)
		names = append(names, next)
		node = parent
	}

	sections := []types.Section{}
	resolvedFrom := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		sections = merge(sections, chain[i].Sections)
		resolvedFrom = append(resolvedFrom, chain[i].Name)
	}
	return &Result{
		Sections:     sections,
		ResolvedFrom: resolvedFrom,
		Version:      target.Version,
	}, nil
}

// merge applies one record's sections on top of the accumulated parent
// sections. A matching name replaces the body in place, a new name appends,
// and an empty body removes.
func merge(acc []types.Section, overlay []types.Section) []types.Section {
	out := make([]types.Section, len(acc))
	copy(out, acc)
	for _, sec := range overlay {
		at := -1
		for i := range out {
			if out[i].Name == sec.Name {
				at = i
				break
			}
		}
		switch {
		case sec.Body == "":
			if at >= 0 {
				out = append(out[:at], out[at+1:]...)
			}
		case at >= 0:
			out[at].Body = sec.Body
		default:
			out = append(out, sec)
		}
	}
	return out
}

// latestByName picks the highest-version record currently bearing name.
// Lookup runs over deduplicated records so a renamed prompt stops answering
// to its old name. Version ties keep the later record.
func latestByName(name string, current []types.Prompt) (types.Prompt, bool) {
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

// exactVersion finds the (name, version) record anywhere in the history,
// including versions superseded since. Later duplicates win.
func exactVersion(name string, version int, prompts []types.Prompt) (types.Prompt, bool) {
	var match types.Prompt
	found := false
	for _, p := range prompts {
		if p.Name == name && p.Version == version {
			match = p
			found = true
		}
	}
	return match, found
}
