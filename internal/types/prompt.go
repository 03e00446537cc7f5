// Package types provides the record types shared across folio packages.
// This package has no dependencies on other folio packages to avoid import cycles.
package types

import "time"

// Status governs a prompt's visibility in default listings and batch export.
type Status string

const (
	// StatusDraft marks a prompt that is still being written.
	StatusDraft Status = "draft"
	// StatusActive marks a prompt ready for use.
	StatusActive Status = "active"
	// StatusArchived marks a soft-deleted prompt. Archived records stay in the
	// log; archiving is the only deletion folio performs.
	StatusArchived Status = "archived"
)

// ParseStatus converts a string to a Status.
// Returns StatusDraft if the string is not recognized.
func ParseStatus(s string) Status {
	switch s {
	case "draft":
		return StatusDraft
	case "active":
		return StatusActive
	case "archived":
		return StatusArchived
	default:
		return StatusDraft
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Section is an ordered, named unit of prompt content.
// An empty Body is the removal sentinel: during resolution it deletes the
// same-named section inherited from a parent, and it never appears in
// composed output.
type Section struct {
	Name string `json:"name" yaml:"name"`
	Body string `json:"body" yaml:"body"`
}

// Prompt is one version of a named, section-structured document. Every
// mutation appends a complete new Prompt line with Version+1; records are
// never edited in place, which is what makes version history exist at all.
type Prompt struct {
	// ID is assigned once at creation and never reused across documents.
	ID string `json:"id" yaml:"id"`
	// Name is the mutable lookup key. After a rename an old name may be
	// reused by a different ID, so name lookups always mean "highest
	// version currently bearing this name".
	Name string `json:"name" yaml:"name"`
	// Version starts at 1 and increases by exactly 1 per mutation.
	Version  int       `json:"version" yaml:"version"`
	Sections []Section `json:"sections" yaml:"sections"`
	// Extends names the parent prompt, deliberately by name rather than ID:
	// renaming the parent breaks inheritance explicitly instead of silently
	// following it.
	Extends string `json:"extends,omitempty" yaml:"extends,omitempty"`
	Status  Status `json:"status" yaml:"status"`
	// Pinned, when non-zero, tells consumers to resolve this prompt at that
	// fixed version instead of its latest.
	Pinned    int       `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// RecordID returns the prompt's identity for dedup-on-read.
func (p Prompt) RecordID() string { return p.ID }

// RecordVersion returns the prompt's version for dedup-on-read.
func (p Prompt) RecordVersion() int { return p.Version }

// Section returns the section with the given name and whether it exists.
func (p Prompt) Section(name string) (Section, bool) {
	for _, s := range p.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Clone returns a deep copy of the prompt.
// Mutations build the next version on a clone so the caller's snapshot of
// the current record stays untouched.
func (p Prompt) Clone() Prompt {
	out := p
	out.Sections = make([]Section, len(p.Sections))
	copy(out.Sections, p.Sections)
	return out
}
