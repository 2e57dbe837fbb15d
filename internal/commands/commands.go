// Package commands implements the command-level contract of the task
// engine. Handlers receive already-parsed filters; argv handling lives in
// the CLI layer.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tasket/internal/query"
	"tasket/internal/store"
	"tasket/internal/task"
)

var (
	ErrNoSummary = errors.New("task summary required")
	ErrNoIDs     = errors.New("at least one task ID required")
)

// Session wires one command invocation to the repository, the persisted
// context and the output stream.
type Session struct {
	Store *store.Store
	State *store.LocalState
	Out   io.Writer

	now func() time.Time
}

func NewSession(st *store.Store, state *store.LocalState, out io.Writer) *Session {
	return &Session{Store: st, State: state, Out: out, now: time.Now}
}

// merged layers the persisted context under the command's own filter,
// unless the filter carries the bypass signal.
func (s *Session) merged(f query.Filter) query.Filter {
	return f.Merge(s.State.ContextFor(f))
}

// Add creates a new pending task from the filter's text and attributes, or
// instantiates a template when the filter references one.
func (s *Session) Add(f query.Filter) (*task.Task, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	merged := s.merged(f)

	var t *task.Task
	if f.Template > 0 {
		t, err = Instantiate(ts, f.Template, merged)
		if err != nil {
			return nil, err
		}
	} else {
		if len(f.Text) == 0 {
			return nil, ErrNoSummary
		}
		t = task.New(joinText(merged.Text))
		t.Tags = merged.Tags
		t.Project = merged.Project
		if merged.Priority != "" {
			t.Priority = merged.Priority
		}
		if merged.DueOp != "" {
			t.Due = merged.Due
		}
		if merged.Note != "" {
			t.Notes = merged.Note + "\n"
		}
	}

	if err := ts.Add(t); err != nil {
		return nil, err
	}
	ts.AssignIDs()
	if err := s.Store.SavePending(ts); err != nil {
		return nil, err
	}
	if err := s.Store.Commit("Added task"); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "Added %d: %s\n", t.ID, t.Summary)
	return t, nil
}

// Log records already-done work: the task is created directly in resolved
// status with the resolved timestamp set.
func (s *Session) Log(f query.Filter) (*task.Task, error) {
	if len(f.Text) == 0 {
		return nil, ErrNoSummary
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	merged := s.merged(f)

	t := task.New(joinText(merged.Text))
	t.Tags = merged.Tags
	t.Project = merged.Project
	if merged.Priority != "" {
		t.Priority = merged.Priority
	}
	if merged.DueOp != "" {
		t.Due = merged.Due
	}
	if merged.Note != "" {
		t.Notes = merged.Note + "\n"
	}
	t.Status = task.StatusResolved
	t.Resolved = s.now()

	if err := ts.Add(t); err != nil {
		return nil, err
	}
	if err := s.Store.SavePending(ts); err != nil {
		return nil, err
	}
	if err := s.Store.Commit("Logged task"); err != nil {
		return nil, err
	}
	fmt.Fprintf(s.Out, "Logged: %s\n", t.Summary)
	return t, nil
}

// Template converts the referenced tasks to templates, or creates a new
// template task from text.
func (s *Session) Template(f query.Filter) error {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}

	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			t, err := ts.GetByID(id)
			if err != nil {
				return err
			}
			t.MakeTemplate()
		}
		if err := s.Store.SavePending(ts); err != nil {
			return err
		}
		return s.Store.Commit("Changed to template")
	}

	if len(f.Text) == 0 {
		return ErrNoSummary
	}
	merged := s.merged(f)
	t := task.New(joinText(merged.Text))
	t.Status = task.StatusTemplate
	t.Tags = merged.Tags
	t.Project = merged.Project
	if merged.Priority != "" {
		t.Priority = merged.Priority
	}
	if merged.DueOp != "" {
		t.Due = merged.Due
	}
	if merged.Note != "" {
		t.Notes = merged.Note + "\n"
	}
	if err := ts.Add(t); err != nil {
		return err
	}
	if err := s.Store.SavePending(ts); err != nil {
		return err
	}
	if err := s.Store.Commit("Created template"); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "Created template: %s\n", t.Summary)
	return nil
}

// Start activates the selected tasks.
func (s *Session) Start(f query.Filter) error {
	return s.transition(f, "Started", (*task.Task).Start)
}

// Stop pauses the selected tasks.
func (s *Session) Stop(f query.Filter) error {
	return s.transition(f, "Stopped", (*task.Task).Stop)
}

// Open reopens resolved tasks. Resolved tasks carry no regular ID, so the
// reference is their position in the resolved listing, most recently
// resolved first.
func (s *Session) Open(f query.Filter) error {
	if len(f.IDs) == 0 {
		return ErrNoIDs
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}
	resolved := ts.ResolvedTasks()
	for _, id := range f.IDs {
		if id < 1 || id > len(resolved) {
			return fmt.Errorf("%w: %d", store.ErrUnknownID, id)
		}
		if err := resolved[id-1].Reopen(); err != nil {
			return err
		}
	}
	if err := s.Store.SavePending(ts); err != nil {
		return err
	}
	return s.Store.Commit("Reopened")
}

func (s *Session) transition(f query.Filter, verb string, step func(*task.Task) error) error {
	if len(f.IDs) == 0 {
		return ErrNoIDs
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}
	for _, id := range f.IDs {
		t, err := ts.GetByID(id)
		if err != nil {
			return err
		}
		if err := step(t); err != nil {
			return err
		}
	}
	if err := s.Store.SavePending(ts); err != nil {
		return err
	}
	return s.Store.Commit(verb)
}

// Done resolves the selected tasks. Attribute operators on the filter are
// applied to the tasks as they resolve.
func (s *Session) Done(f query.Filter) error {
	if len(f.IDs) == 0 {
		return ErrNoIDs
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}
	for _, id := range f.IDs {
		t, err := ts.GetByID(id)
		if err != nil {
			return err
		}
		if f.HasOperators() || f.Note != "" {
			f.Apply(t)
		}
		if err := t.Resolve(); err != nil {
			return err
		}
	}
	if err := s.Store.SavePending(ts); err != nil {
		return err
	}
	return s.Store.Commit("Resolved")
}

// Modify applies the merged filter's attribute set to the selected tasks.
func (s *Session) Modify(f query.Filter) error {
	if len(f.IDs) == 0 {
		return ErrNoIDs
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}
	merged := s.merged(f)
	for _, id := range f.IDs {
		t, err := ts.GetByID(id)
		if err != nil {
			return err
		}
		merged.Apply(t)
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if err := s.Store.SavePending(ts); err != nil {
		return err
	}
	return s.Store.Commit("Modified")
}

// Remove deletes the selected tasks' files and commits the deletion. The
// tasks are gone for good; there is no archive.
func (s *Session) Remove(f query.Filter) error {
	if len(f.IDs) == 0 {
		return ErrNoIDs
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return err
	}
	for _, id := range f.IDs {
		t, err := ts.GetByID(id)
		if err != nil {
			return err
		}
		if err := s.Store.Remove(t); err != nil {
			return err
		}
		ts.Remove(t)
		fmt.Fprintf(s.Out, "Removed: %s\n", t.Summary)
	}
	return s.Store.Commit("Removed")
}

// Context sets, clears or reports the persisted context. With no tokens the
// current context is printed; the literal "none" clears it.
func (s *Session) Context(tokens []string) error {
	if len(tokens) == 0 {
		if s.State.Context.Empty() {
			fmt.Fprintln(s.Out, "no context set")
		} else {
			fmt.Fprintln(s.Out, s.State.Context.String())
		}
		return nil
	}
	if len(tokens) == 1 && tokens[0] == "none" {
		return s.State.Set(query.Filter{})
	}
	f, err := query.Parse(tokens, s.now())
	if err != nil {
		return err
	}
	return s.State.Set(f)
}

// Undo discards the most recent n commits.
func (s *Session) Undo(n int) error {
	if err := s.Store.Undo(n); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "Undone %d commit(s)\n", n)
	return nil
}

// Sync pulls then pushes the repository.
func (s *Session) Sync() error {
	if err := s.Store.Sync(); err != nil {
		return err
	}
	fmt.Fprintln(s.Out, "Synced repository")
	return nil
}

// Git passes raw arguments through to the version-control tool.
func (s *Session) Git(args []string) error {
	out, err := s.Store.RunRaw(args...)
	if out != "" {
		fmt.Fprintln(s.Out, out)
	}
	return err
}

func joinText(terms []string) string {
	return strings.Join(terms, " ")
}
