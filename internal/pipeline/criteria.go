package pipeline

import "strings"

// Criteria is an ordered set of case-insensitive search terms.
// Text matches when it contains any term; an empty set matches everything.
type Criteria struct {
	terms []string
}

// NewCriteria lower-cases the terms and drops empty ones.
func NewCriteria(terms []string) Criteria {
	c := Criteria{}
	for _, term := range terms {
		if term = strings.ToLower(term); term != "" {
			c.terms = append(c.terms, term)
		}
	}
	return c
}

// Terms returns the lower-cased search terms.
func (c Criteria) Terms() []string {
	return append([]string(nil), c.terms...)
}

// Matches reports whether text contains at least one term.
func (c Criteria) Matches(text string) bool {
	if len(c.terms) == 0 {
		return true
	}

	text = strings.ToLower(text)
	for _, term := range c.terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
