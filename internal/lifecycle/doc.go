// Package lifecycle holds the rules tying a task's checklist to its status.
//
// Status is a projection of the checklist: every checklist mutation recomputes
// it with Derive. A manual status write is accepted as-is and stays in effect
// until the checklist changes again.
package lifecycle
