package lifecycle

import (
	"math"

	"github.com/yukikurage/stellar-tasks/internal/models"
)

// Checklist is a read-only view over a task's ordered checklist items.
type Checklist []models.ChecklistItem

// Total returns the number of items.
func (c Checklist) Total() int {
	return len(c)
}

// CompletedCount returns the number of completed items.
func (c Checklist) CompletedCount() int {
	n := 0
	for _, item := range c {
		if item.Completed {
			n++
		}
	}
	return n
}

// ProgressPercent returns the rounded completion percentage, 0 for an empty
// checklist.
func (c Checklist) ProgressPercent() int {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(c.CompletedCount()) / float64(total)))
}

// IsFullyComplete reports whether the checklist is non-empty and every item is
// completed.
func (c Checklist) IsFullyComplete() bool {
	return c.Total() > 0 && c.CompletedCount() == c.Total()
}

// SetCompleted returns a copy with the item at index set to completed. The
// flip is idempotent. ok is false when index is out of range.
func (c Checklist) SetCompleted(index int, completed bool) (Checklist, bool) {
	if index < 0 || index >= len(c) {
		return c, false
	}
	out := make(Checklist, len(c))
	copy(out, c)
	out[index].Completed = completed
	return out, true
}

// SameItems reports whether other has the same texts in the same order,
// ignoring completion flags.
func (c Checklist) SameItems(other Checklist) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i].Text != other[i].Text {
			return false
		}
	}
	return true
}
