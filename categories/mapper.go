// Package categories maps external provider category labels onto the internal
// taxonomy.
package categories

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"svend-go-be/models"
)

// Match is one resolved label.
type Match struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
}

// Normalize folds a category label for comparison: lowercase, strip
// non-alphanumerics, collapse runs of whitespace to a single space.
func Normalize(label string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Mapper resolves external labels against a fixed category set. It is built
// once per run and read-only afterwards, so it is safe to share across
// concurrent item syncs.
type Mapper struct {
	byNorm map[string]Match
	norms  []string // sorted order of insertion kept stable by build order
}

// NewMapper builds a mapper over the given categories. Composite categories
// are reporting roll-ups, not assignment targets, and are excluded.
func NewMapper(cats []models.Category) *Mapper {
	m := &Mapper{byNorm: make(map[string]Match, len(cats))}
	for _, c := range cats {
		if c.Composite {
			continue
		}
		norm := Normalize(c.Name)
		if norm == "" {
			continue
		}
		if _, ok := m.byNorm[norm]; ok {
			continue // first definition wins
		}
		m.byNorm[norm] = Match{CategoryID: c.ID, Name: c.Name}
		m.norms = append(m.norms, norm)
	}
	return m
}

// maxDistance bounds the fuzzy match for a normalized label. Short labels get
// no slack at all; longer ones tolerate a couple of edits.
func maxDistance(norm string) int {
	switch {
	case len(norm) < 6:
		return 0
	case len(norm) < 12:
		return 1
	default:
		return 2
	}
}

// Resolve maps one label. Exact normalized match wins; otherwise the nearest
// category within the edit-distance bound. Returns false when the label is
// empty or nothing is close enough; callers must then leave the transaction
// uncategorized rather than guessing a bucket.
func (m *Mapper) Resolve(label string) (Match, bool) {
	norm := Normalize(label)
	if norm == "" {
		return Match{}, false
	}
	if match, ok := m.byNorm[norm]; ok {
		return match, true
	}

	bound := maxDistance(norm)
	if bound == 0 {
		return Match{}, false
	}
	best := ""
	bestDist := bound + 1
	for _, cand := range m.norms {
		dist := levenshtein.ComputeDistance(norm, cand)
		if dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	if best == "" {
		return Match{}, false
	}
	return m.byNorm[best], true
}

// MapLabels resolves a batch of labels in one pass. Unresolvable labels are
// omitted from the result; absence means "leave unassigned".
func (m *Mapper) MapLabels(labels []string) map[string]Match {
	out := make(map[string]Match)
	for _, label := range labels {
		if label == "" {
			continue
		}
		if _, done := out[label]; done {
			continue
		}
		if match, ok := m.Resolve(label); ok {
			out[label] = match
		}
	}
	return out
}
