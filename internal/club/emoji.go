package club

import "strings"

// Reaction label sets recognized by the club. Custom platform emoji are
// matched by their lowercased name, unicode emoji by the glyph itself.
var (
	DefaultPinLabels      = []string{"📌", "pin"}
	DefaultUpvoteLabels   = []string{"👍", "➕", "💯", "🙌", "👏"}
	DefaultDownvoteLabels = []string{"👎", "➖"}
)

// LabelSet answers membership questions about normalized reaction labels.
type LabelSet map[string]struct{}

// NewLabelSet builds a LabelSet, normalizing each label.
func NewLabelSet(labels ...string) LabelSet {
	set := make(LabelSet, len(labels))
	for _, label := range labels {
		set[NormalizeLabel(label)] = struct{}{}
	}
	return set
}

// Has reports whether the label belongs to the set.
func (s LabelSet) Has(label string) bool {
	_, ok := s[NormalizeLabel(label)]
	return ok
}

// Count sums the tallies of reactions whose label belongs to the set.
func (s LabelSet) Count(reactions []Reaction) int {
	total := 0
	for _, reaction := range reactions {
		if s.Has(reaction.Label) {
			total += reaction.Count
		}
	}
	return total
}

// NormalizeLabel canonicalizes a reaction label: custom emoji names are
// lowercased, unicode emoji lose variation selectors and skin tone
// modifiers so that 👍🏿 and 👍 count as the same vote.
func NormalizeLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r == 0xFE0E || r == 0xFE0F: // variation selectors
		case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}
