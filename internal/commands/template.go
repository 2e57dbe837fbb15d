package commands

import (
	"errors"
	"fmt"

	"tasket/internal/query"
	"tasket/internal/store"
	"tasket/internal/task"
)

var ErrTemplateNotFound = errors.New("no template with that ID")

// Instantiate copies a template into a fresh pending task. Overrides from
// the filter replace the template's attributes; its tags are kept and the
// override tags are added on top.
func Instantiate(ts *store.TaskSet, id int, overrides query.Filter) (*task.Task, error) {
	tpl, err := ts.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	if tpl.Status != task.StatusTemplate {
		return nil, fmt.Errorf("%w: task %d is %s", ErrTemplateNotFound, id, tpl.Status)
	}

	t := task.New(tpl.Summary)
	t.Notes = tpl.Notes
	t.Tags = append([]string(nil), tpl.Tags...)
	t.Project = tpl.Project
	t.Priority = tpl.Priority
	t.Due = tpl.Due

	if len(overrides.Text) > 0 {
		t.Summary = joinText(overrides.Text)
	}
	overrides.Apply(t)
	return t, nil
}
