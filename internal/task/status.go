package task

import (
	"fmt"
	"strings"
)

// uncheckedBox marks an open checklist item in notes.
const uncheckedBox = "- [ ]"

// Only start/stop/resolve are transition-validated. The remaining statuses
// (template, delegated, deferred, recurring) are direct value assignments.

// Start moves a pending or paused task to active.
func (t *Task) Start() error {
	if t.Status != StatusPending && t.Status != StatusPaused {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusActive)
	}
	t.Status = StatusActive
	t.WritePending = true
	return nil
}

// Stop pauses an active task.
func (t *Task) Stop() error {
	if t.Status != StatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusPaused)
	}
	t.Status = StatusPaused
	t.WritePending = true
	return nil
}

// Resolve marks the task done. It refuses while the notes still contain an
// unchecked checklist item, and stamps the resolved time.
func (t *Task) Resolve() error {
	if HasUncheckedItems(t.Notes) {
		return fmt.Errorf("%w: %s", ErrIncompleteChecklist, t.Summary)
	}
	t.Status = StatusResolved
	t.Resolved = timeNow()
	t.ID = 0
	t.WritePending = true
	return nil
}

// Reopen moves a resolved task back to pending and clears the resolved time.
func (t *Task) Reopen() error {
	if t.Status != StatusResolved {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusPending)
	}
	t.Status = StatusPending
	t.Resolved = zeroTime
	t.WritePending = true
	return nil
}

// MakeTemplate converts the task to a template blueprint.
func (t *Task) MakeTemplate() {
	t.Status = StatusTemplate
	t.Resolved = zeroTime
	t.WritePending = true
}

// HasUncheckedItems reports whether any line of notes holds an open
// checklist box.
func HasUncheckedItems(notes string) bool {
	for _, line := range strings.Split(notes, "\n") {
		if strings.Contains(line, uncheckedBox) {
			return true
		}
	}
	return false
}
