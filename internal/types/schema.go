package types

import "time"

// Rule is a regex check applied to one section of resolved content.
type Rule struct {
	Section string `json:"section" yaml:"section"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Schema lists the sections a resolved prompt must contain, plus optional
// regex rules. Schemas share the prompt log's append mechanics but not its
// version semantics: the last line written for a given ID wins outright.
type Schema struct {
	ID        string    `json:"id" yaml:"id"`
	Required  []string  `json:"required,omitempty" yaml:"required,omitempty"`
	Rules     []Rule    `json:"rules,omitempty" yaml:"rules,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// RecordID returns the schema's identity for dedup-on-read.
func (s Schema) RecordID() string { return s.ID }
