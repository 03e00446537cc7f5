// Package validate checks resolved prompt sections against a stored schema.
package validate

import (
	"fmt"
	"regexp"

	"github.com/folio-sh/folio/internal/types"
)

// Violation describes one failed schema check.
type Violation struct {
	Section string `json:"section" yaml:"section"`
	Message string `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("section %q: %s", v.Section, v.Message)
}

// Check runs schema against a set of sections and reports every violation
// rather than stopping at the first. A required section with an empty body
// counts as missing. Pattern rules only apply to sections that are present.
func Check(schema types.Schema, sections []types.Section) []Violation {
	var violations []Violation

	bodies := make(map[string]string, len(sections))
	for _, sec := range sections {
		bodies[sec.Name] = sec.Body
	}

	for _, name := range schema.Required {
		if bodies[name] == "" {
			violations = append(violations, Violation{
				Section: name,
				Message: "required section is missing",
			})
		}
	}

	for _, rule := range schema.Rules {
		body, ok := bodies[rule.Section]
		if !ok {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			violations = append(violations, Violation{
				Section: rule.Section,
				Message: fmt.Sprintf("invalid pattern %q: %v", rule.Pattern, err),
			})
			continue
		}
		if !re.MatchString(body) {
			violations = append(violations, Violation{
				Section: rule.Section,
				Message: fmt.Sprintf("body does not match %q", rule.Pattern),
			})
		}
	}

	return violations
}

// CheckPatterns compiles every rule pattern in schema and returns the first
// compile error. Callers use it to reject bad schemas before storing them.
func CheckPatterns(schema types.Schema) error {
	for _, rule := range schema.Rules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("rule for section %q: %w", rule.Section, err)
		}
	}
	return nil
}
