package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/models"
)

func items(flags ...bool) Checklist {
	out := make(Checklist, len(flags))
	for i, f := range flags {
		out[i] = models.ChecklistItem{Text: string(rune('A' + i)), Completed: f}
	}
	return out
}

func TestChecklist_Empty(t *testing.T) {
	var c Checklist

	assert.Equal(t, 0, c.CompletedCount())
	assert.Equal(t, 0, c.ProgressPercent())
	assert.False(t, c.IsFullyComplete())
}

func TestChecklist_ProgressPercent(t *testing.T) {
	cases := []struct {
		name string
		list Checklist
		want int
	}{
		{"half", items(true, false), 50},
		{"none", items(false, false, false), 0},
		{"all", items(true, true), 100},
		{"one third rounds down", items(true, false, false), 33},
		{"two thirds rounds up", items(true, true, false), 67},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.list.ProgressPercent()
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestChecklist_SetCompletedIsIdempotent(t *testing.T) {
	c := items(false, false)

	once, ok := c.SetCompleted(0, true)
	require.True(t, ok)
	twice, ok := once.SetCompleted(0, true)
	require.True(t, ok)

	assert.Equal(t, 1, twice.CompletedCount())
	assert.False(t, c[0].Completed, "original checklist must not be mutated")
}

func TestChecklist_SetCompletedOutOfRange(t *testing.T) {
	c := items(false)

	_, ok := c.SetCompleted(1, true)
	assert.False(t, ok)
	_, ok = c.SetCompleted(-1, true)
	assert.False(t, ok)
}

func TestChecklist_SameItems(t *testing.T) {
	assert.True(t, items(true, false).SameItems(items(false, true)))
	assert.False(t, items(true).SameItems(items(true, true)))

	renamed := items(false, false)
	renamed[1].Text = "renamed"
	assert.False(t, items(false, false).SameItems(renamed))
}
