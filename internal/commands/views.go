package commands

import (
	"errors"

	"tasket/internal/query"
	"tasket/internal/store"
	"tasket/internal/task"
)

var ErrFilteredView = errors.New("view does not accept filter arguments")

// Next lists actionable work: non-hidden tasks matching the merged filter,
// most urgent first.
func (s *Session) Next(f query.Filter) ([]*task.Task, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	out := ts.Visible(s.merged(f))
	store.SortForView(out)
	return out, nil
}

// ShowActive lists started tasks matching the merged filter.
func (s *Session) ShowActive(f query.Filter) ([]*task.Task, error) {
	return s.byStatus(f, task.StatusActive)
}

// ShowPaused lists stopped tasks matching the merged filter.
func (s *Session) ShowPaused(f query.Filter) ([]*task.Task, error) {
	return s.byStatus(f, task.StatusPaused)
}

// ShowOpen lists every unresolved, non-template task matching the merged
// filter, including statuses the next view hides.
func (s *Session) ShowOpen(f query.Filter) ([]*task.Task, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	merged := s.merged(f)
	var out []*task.Task
	for _, t := range ts.All() {
		if t.Status == task.StatusResolved || t.Status == task.StatusTemplate {
			continue
		}
		if merged.Matches(t) {
			out = append(out, t)
		}
	}
	store.SortForView(out)
	return out, nil
}

// ShowResolved lists resolved tasks matching the merged filter, most
// recently resolved first. The listing IDs are the positional references
// that reopen accepts.
func (s *Session) ShowResolved(f query.Filter) ([]*task.Task, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	merged := s.merged(f)
	var out []*task.Task
	for _, t := range ts.ResolvedTasks() {
		if merged.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ShowTemplates lists template tasks matching the merged filter.
func (s *Session) ShowTemplates(f query.Filter) ([]*task.Task, error) {
	return s.byStatus(f, task.StatusTemplate)
}

// ShowUnorganised lists tasks carrying neither tags nor a project. It takes
// no filter, so operators are an error rather than silently ignored.
func (s *Session) ShowUnorganised(f query.Filter) ([]*task.Task, error) {
	if !f.Empty() {
		return nil, ErrFilteredView
	}
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	out := ts.Unorganised()
	store.SortForView(out)
	return out, nil
}

// ShowProjects aggregates per-project progress across all tasks.
func (s *Session) ShowProjects() ([]store.ProjectSummary, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	return store.Projects(ts.All()), nil
}

// ShowTags lists every tag on unresolved tasks, sorted.
func (s *Session) ShowTags() ([]string, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	var open []*task.Task
	for _, t := range ts.All() {
		if t.Status != task.StatusResolved {
			open = append(open, t)
		}
	}
	return store.Tags(open), nil
}

func (s *Session) byStatus(f query.Filter, status string) ([]*task.Task, error) {
	ts, err := s.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	out := ts.ByStatus(status, s.merged(f))
	store.SortForView(out)
	return out, nil
}
