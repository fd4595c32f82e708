package club

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		label string
		want  string
	}{
		{name: "plain emoji", label: "👍", want: "👍"},
		{name: "skin tone stripped", label: "👍🏿", want: "👍"},
		{name: "variation selector stripped", label: "❤️", want: "❤"},
		{name: "custom emoji name lowercased", label: "KravaHoova", want: "kravahoova"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizeLabel(tc.label))
		})
	}
}

func TestLabelSetCount(t *testing.T) {
	t.Parallel()

	upvotes := NewLabelSet(DefaultUpvoteLabels...)
	reactions := []Reaction{
		{Label: "👍", Count: 2},
		{Label: "👍🏽", Count: 1},
		{Label: "👎", Count: 5},
		{Label: "📌", Count: 1},
	}
	require.Equal(t, 3, upvotes.Count(reactions))

	pins := NewLabelSet(DefaultPinLabels...)
	require.Equal(t, 1, pins.Count(reactions))
	require.True(t, pins.Has("📌"))
	require.True(t, pins.Has("Pin"))
	require.False(t, pins.Has("👍"))
}
