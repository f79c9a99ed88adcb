package lifecycle

import "github.com/yukikurage/stellar-tasks/internal/models"

// Override is a status written explicitly in the same request as a checklist
// change. The zero value means no manual write.
type Override struct {
	Status models.TaskStatus
	Set    bool
}

// Manual returns an Override for an explicit status write.
func Manual(status models.TaskStatus) Override {
	return Override{Status: status, Set: true}
}

// Derive computes the status a task takes after its checklist changed,
// from the rounded progress percentage:
//
//   - 100 on a non-empty checklist is Completed
//   - between 0 and 100 is In Progress, unless the same write set Completed
//   - 0 is Pending, unless the same write set a status
func Derive(items Checklist, override Override) models.TaskStatus {
	progress := items.ProgressPercent()
	switch {
	case items.Total() > 0 && progress == 100:
		return models.TaskStatusCompleted
	case progress > 0:
		if override.Set && override.Status == models.TaskStatusCompleted {
			return models.TaskStatusCompleted
		}
		return models.TaskStatusInProgress
	default:
		if override.Set {
			return override.Status
		}
		return models.TaskStatusPending
	}
}

// CanTransition reports whether a manual write may move a task from one status
// to another. Every pair of valid statuses is allowed, including backward moves.
func CanTransition(from, to models.TaskStatus) bool {
	return from.Valid() && to.Valid()
}
