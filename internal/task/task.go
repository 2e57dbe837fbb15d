package task

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrIncompleteChecklist = errors.New("task has unchecked checklist items")

	timeNow = func() time.Time { return time.Now() }

	zeroTime time.Time
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusResolved  = "resolved"
	StatusTemplate  = "template"
	StatusDelegated = "delegated"
	StatusDeferred  = "deferred"
	StatusRecurring = "recurring"
)

const (
	PriorityCritical = "P0"
	PriorityHigh     = "P1"
	PriorityNormal   = "P2"
	PriorityLow      = "P3"
)

// AllStatuses lists every valid status value.
var AllStatuses = []string{
	StatusPending,
	StatusActive,
	StatusPaused,
	StatusResolved,
	StatusTemplate,
	StatusDelegated,
	StatusDeferred,
	StatusRecurring,
}

// HiddenStatuses are excluded from default views; they are shown only by
// their dedicated show- commands.
var HiddenStatuses = []string{StatusRecurring, StatusResolved, StatusTemplate}

// Task is the in-memory record for a single tracked item. Key is the
// permanent identity naming the storage file; ID is a transient integer
// recomputed per load and must never be persisted.
type Task struct {
	Key      string
	ID       int
	Status   string
	Summary  string
	Notes    string
	Tags     []string
	Project  string
	Priority string
	Created  time.Time
	Resolved time.Time
	Due      time.Time

	// WritePending marks the task for the next store save; Deleted marks
	// its file for removal. Neither is serialized.
	WritePending bool
	Deleted      bool
}

// New creates a pending task with a fresh key.
func New(summary string) *Task {
	return &Task{
		Key:          NewKey(),
		Status:       StatusPending,
		Summary:      summary,
		Priority:     PriorityNormal,
		Created:      timeNow(),
		WritePending: true,
	}
}

// NewKey returns a fresh ULID to name a task's storage file.
func NewKey() string {
	t := ulid.Timestamp(timeNow())
	id, err := ulid.New(t, ulid.Monotonic(randReader{}, 0))
	if err != nil {
		return strings.ToUpper(ulid.MustNew(t, randReader{}).String())
	}
	return strings.ToUpper(id.String())
}

// ValidKey reports whether s is a well-formed task key.
func ValidKey(s string) bool {
	_, err := ulid.ParseStrict(strings.ToUpper(s))
	return err == nil
}

func ValidStatus(s string) bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

func Hidden(status string) bool {
	for _, st := range HiddenStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// Normalise lowercases the project and tags, sorts and dedupes the tag set,
// and fills in the default priority.
func (t *Task) Normalise() {
	t.Project = strings.ToLower(t.Project)
	for i, tag := range t.Tags {
		t.Tags[i] = strings.ToLower(tag)
	}
	sort.Strings(t.Tags)
	t.Tags = dedupe(t.Tags)
	if t.Status == StatusResolved {
		t.ID = 0
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
}

// Validate checks the task invariants that hold for every stored task.
func (t *Task) Validate() error {
	if !ValidKey(t.Key) {
		return fmt.Errorf("%w: bad key %q", ErrValidation, t.Key)
	}
	if strings.TrimSpace(t.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrValidation)
	}
	if !ValidStatus(t.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	if !ValidPriority(t.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, t.Priority)
	}
	if t.Created.IsZero() {
		return fmt.Errorf("%w: created timestamp is required", ErrValidation)
	}
	if (t.Status == StatusResolved) != !t.Resolved.IsZero() {
		return fmt.Errorf("%w: resolved timestamp must be set exactly when status is resolved", ErrValidation)
	}
	return nil
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// AddTag inserts a tag if not already present.
func (t *Task) AddTag(tag string) {
	if !t.HasTag(tag) {
		t.Tags = append(t.Tags, tag)
	}
}

// RemoveTag drops a tag if present.
func (t *Task) RemoveTag(tag string) {
	kept := t.Tags[:0]
	for _, have := range t.Tags {
		if have != tag {
			kept = append(kept, have)
		}
	}
	t.Tags = kept
}

// Unorganised reports whether the task has neither tags nor a project.
func (t *Task) Unorganised() bool {
	return len(t.Tags) == 0 && t.Project == ""
}

func (t *Task) String() string {
	if t.ID > 0 {
		return fmt.Sprintf("%d: %s", t.ID, t.Summary)
	}
	return t.Summary
}

func dedupe(in []string) []string {
	out := in[:0]
	var last string
	for i, s := range in {
		if s == "" || (i > 0 && s == last) {
			continue
		}
		out = append(out, s)
		last = s
	}
	return out
}
