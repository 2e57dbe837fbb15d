package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"tasket/internal/query"
	"tasket/internal/task"
)

var ErrUnknownID = errors.New("unknown task ID")

// TaskSet is the working set for one command invocation. IDs are assigned
// 1..N over the non-resolved tasks in (created, key) order, so repeated
// loads over unchanged data produce identical assignments. They are never
// persisted and must not be cached across invocations.
type TaskSet struct {
	tasks []*task.Task
	byID  map[int]*task.Task
	byKey map[string]*task.Task
}

func NewTaskSet() *TaskSet {
	return &TaskSet{
		byID:  map[int]*task.Task{},
		byKey: map[string]*task.Task{},
	}
}

// Add normalises, validates and inserts a task. Duplicate keys are ignored,
// keeping the first occurrence.
func (ts *TaskSet) Add(t *task.Task) error {
	t.Normalise()
	if err := t.Validate(); err != nil {
		return err
	}
	if _, dup := ts.byKey[t.Key]; dup {
		return nil
	}
	ts.tasks = append(ts.tasks, t)
	ts.byKey[t.Key] = t
	return nil
}

// AssignIDs recomputes the integer IDs for the eligible set. Eligible means
// not resolved; templates keep IDs so they can be referenced, they are
// merely hidden from default views.
func (ts *TaskSet) AssignIDs() {
	eligible := make([]*task.Task, 0, len(ts.tasks))
	for _, t := range ts.tasks {
		if t.Status == task.StatusResolved {
			t.ID = 0
			continue
		}
		eligible = append(eligible, t)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].Created.Equal(eligible[j].Created) {
			return eligible[i].Created.Before(eligible[j].Created)
		}
		return eligible[i].Key < eligible[j].Key
	})
	ts.byID = make(map[int]*task.Task, len(eligible))
	for i, t := range eligible {
		t.ID = i + 1
		ts.byID[t.ID] = t
	}
}

// GetByID resolves a transient ID to its task.
func (ts *TaskSet) GetByID(id int) (*task.Task, error) {
	t, ok := ts.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return t, nil
}

// GetByKey resolves a permanent key to its task.
func (ts *TaskSet) GetByKey(key string) (*task.Task, bool) {
	t, ok := ts.byKey[key]
	return t, ok
}

// Remove drops a task from the set; the store deletes its file separately.
func (ts *TaskSet) Remove(t *task.Task) {
	kept := ts.tasks[:0]
	for _, have := range ts.tasks {
		if have != t {
			kept = append(kept, have)
		}
	}
	ts.tasks = kept
	delete(ts.byKey, t.Key)
	if t.ID > 0 {
		delete(ts.byID, t.ID)
	}
}

// All returns every loaded task.
func (ts *TaskSet) All() []*task.Task {
	return ts.tasks
}

// Filter returns the tasks matching f, in load order.
func (ts *TaskSet) Filter(f query.Filter) []*task.Task {
	var out []*task.Task
	for _, t := range ts.tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Visible returns the tasks shown by default views: matching f and not in a
// hidden status.
func (ts *TaskSet) Visible(f query.Filter) []*task.Task {
	var out []*task.Task
	for _, t := range ts.tasks {
		if !task.Hidden(t.Status) && f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// ByStatus returns the tasks in one specific status matching f, including
// statuses hidden from default views.
func (ts *TaskSet) ByStatus(status string, f query.Filter) []*task.Task {
	var out []*task.Task
	for _, t := range ts.tasks {
		if t.Status == status && f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Unorganised returns the non-hidden tasks with no tags and no project.
func (ts *TaskSet) Unorganised() []*task.Task {
	var out []*task.Task
	for _, t := range ts.tasks {
		if !task.Hidden(t.Status) && t.Unorganised() {
			out = append(out, t)
		}
	}
	return out
}

// ResolvedTasks returns the resolved set ordered most recently resolved
// first, numbered 1..N in that order. Resolved tasks are excluded from the
// regular allocation, so the resolved listing and reopen share this
// positional numbering instead. Like all IDs it is transient.
func (ts *TaskSet) ResolvedTasks() []*task.Task {
	var out []*task.Task
	for _, t := range ts.tasks {
		if t.Status == task.StatusResolved {
			out = append(out, t)
		}
	}
	SortByResolved(out)
	for i, t := range out {
		t.ID = i + 1
	}
	return out
}

// Tags returns the sorted set of tags across the given tasks.
func Tags(tasks []*task.Task) []string {
	seen := map[string]bool{}
	for _, t := range tasks {
		for _, tag := range t.Tags {
			seen[tag] = true
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// ProjectSummary aggregates per-project statistics for the projects view.
type ProjectSummary struct {
	Name          string
	Tasks         int
	TasksResolved int
	Active        bool
	Created       time.Time
	Priority      string
}

// Projects aggregates the given tasks by project, sorted by name.
func Projects(tasks []*task.Task) []ProjectSummary {
	byName := map[string]*ProjectSummary{}
	for _, t := range tasks {
		if t.Project == "" {
			continue
		}
		p, ok := byName[t.Project]
		if !ok {
			p = &ProjectSummary{Name: t.Project, Created: t.Created, Priority: task.PriorityLow}
			byName[t.Project] = p
		}
		p.Tasks++
		if t.Created.Before(p.Created) {
			p.Created = t.Created
		}
		switch t.Status {
		case task.StatusResolved:
			p.TasksResolved++
		case task.StatusActive:
			p.Active = true
		}
		// P0 sorts lowest, so a string compare picks the most urgent.
		if t.Status != task.StatusResolved && t.Priority < p.Priority {
			p.Priority = t.Priority
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ProjectSummary, 0, len(names))
	for _, name := range names {
		out = append(out, *byName[name])
	}
	return out
}

// SortByResolved orders tasks most recently resolved first.
func SortByResolved(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Resolved.After(tasks[j].Resolved)
	})
}

// SortForView orders tasks the way listing views print them: most urgent
// priority first, oldest first within a priority.
func SortForView(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		return tasks[i].Created.Before(tasks[j].Created)
	})
}
