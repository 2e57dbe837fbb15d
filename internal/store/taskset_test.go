package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasket/internal/query"
	"tasket/internal/task"
)

func mkTask(t *testing.T, summary string, created time.Time) *task.Task {
	t.Helper()
	tk := task.New(summary)
	tk.Created = created
	return tk
}

func TestAssignIDsByCreation(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTaskSet()

	third := mkTask(t, "third", base.Add(2*time.Hour))
	first := mkTask(t, "first", base)
	second := mkTask(t, "second", base.Add(time.Hour))

	for _, tk := range []*task.Task{third, first, second} {
		require.NoError(t, ts.Add(tk))
	}
	ts.AssignIDs()

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, third.ID)
}

func TestAssignIDsTieBreakByKey(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTaskSet()

	a := mkTask(t, "a", base)
	b := mkTask(t, "b", base)
	a.Key = "01ARZ3NDEKTSV4RRFFQ69G5FAA"
	b.Key = "01ARZ3NDEKTSV4RRFFQ69G5FAB"

	require.NoError(t, ts.Add(b))
	require.NoError(t, ts.Add(a))
	ts.AssignIDs()

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
}

func TestAssignIDsSkipsResolved(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTaskSet()

	open := mkTask(t, "open", base)
	done := mkTask(t, "done", base.Add(-time.Hour))
	done.Status = task.StatusResolved
	done.Resolved = base

	require.NoError(t, ts.Add(done))
	require.NoError(t, ts.Add(open))
	ts.AssignIDs()

	assert.Zero(t, done.ID)
	assert.Equal(t, 1, open.ID)
}

func TestAssignIDsShiftDownAfterRemoval(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	ts := NewTaskSet()

	var tasks []*task.Task
	for i := 0; i < 3; i++ {
		tk := mkTask(t, "task", base.Add(time.Duration(i)*time.Hour))
		tasks = append(tasks, tk)
		require.NoError(t, ts.Add(tk))
	}
	ts.AssignIDs()
	require.Equal(t, 2, tasks[1].ID)

	ts.Remove(tasks[1])
	ts.AssignIDs()

	assert.Equal(t, 1, tasks[0].ID)
	assert.Equal(t, 2, tasks[2].ID)
}

func TestGetByID(t *testing.T) {
	ts := NewTaskSet()
	tk := mkTask(t, "findable", time.Now())
	require.NoError(t, ts.Add(tk))
	ts.AssignIDs()

	got, err := ts.GetByID(tk.ID)
	require.NoError(t, err)
	assert.Same(t, tk, got)

	_, err = ts.GetByID(99)
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestAddDuplicateKeyKeepsFirst(t *testing.T) {
	ts := NewTaskSet()
	tk := mkTask(t, "original", time.Now())
	dup := mkTask(t, "imposter", time.Now())
	dup.Key = tk.Key

	require.NoError(t, ts.Add(tk))
	require.NoError(t, ts.Add(dup))

	got, ok := ts.GetByKey(tk.Key)
	require.True(t, ok)
	assert.Equal(t, "original", got.Summary)
	assert.Len(t, ts.All(), 1)
}

func TestVisibleHidesStatuses(t *testing.T) {
	ts := NewTaskSet()
	pending := mkTask(t, "pending", time.Now())
	tpl := mkTask(t, "template", time.Now())
	tpl.Status = task.StatusTemplate
	done := mkTask(t, "done", time.Now())
	done.Status = task.StatusResolved
	done.Resolved = time.Now()

	for _, tk := range []*task.Task{pending, tpl, done} {
		require.NoError(t, ts.Add(tk))
	}

	visible := ts.Visible(query.Filter{})
	require.Len(t, visible, 1)
	assert.Equal(t, "pending", visible[0].Summary)
}

func TestTags(t *testing.T) {
	a := task.New("a")
	a.Tags = []string{"work", "urgent"}
	b := task.New("b")
	b.Tags = []string{"home", "work"}

	assert.Equal(t, []string{"home", "urgent", "work"}, Tags([]*task.Task{a, b}))
	assert.Empty(t, Tags(nil))
}

func TestProjects(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

	p1 := mkTask(t, "one", base.Add(time.Hour))
	p1.Project = "site"
	p1.Priority = task.PriorityHigh

	p2 := mkTask(t, "two", base)
	p2.Project = "site"
	p2.Status = task.StatusActive

	p3 := mkTask(t, "three", base)
	p3.Project = "site"
	p3.Status = task.StatusResolved
	p3.Resolved = base
	p3.Priority = task.PriorityCritical

	other := mkTask(t, "four", base)
	other.Project = "garden"

	none := mkTask(t, "five", base)

	got := Projects([]*task.Task{p1, p2, p3, other, none})
	require.Len(t, got, 2)

	assert.Equal(t, "garden", got[0].Name)
	site := got[1]
	assert.Equal(t, "site", site.Name)
	assert.Equal(t, 3, site.Tasks)
	assert.Equal(t, 1, site.TasksResolved)
	assert.True(t, site.Active)
	assert.True(t, site.Created.Equal(base))
	// the resolved critical task does not drive urgency
	assert.Equal(t, task.PriorityHigh, site.Priority)
}

func TestSortForView(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)

	oldLow := mkTask(t, "old low", base)
	oldLow.Priority = task.PriorityLow
	newCrit := mkTask(t, "new crit", base.Add(time.Hour))
	newCrit.Priority = task.PriorityCritical
	oldNorm := mkTask(t, "old norm", base)
	newNorm := mkTask(t, "new norm", base.Add(time.Hour))

	tasks := []*task.Task{oldLow, newNorm, newCrit, oldNorm}
	SortForView(tasks)

	assert.Equal(t, []*task.Task{newCrit, oldNorm, newNorm, oldLow}, tasks)
}

func TestSortByResolved(t *testing.T) {
	base := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	older := mkTask(t, "older", base)
	older.Resolved = base
	newer := mkTask(t, "newer", base)
	newer.Resolved = base.Add(time.Hour)

	tasks := []*task.Task{older, newer}
	SortByResolved(tasks)
	assert.Equal(t, []*task.Task{newer, older}, tasks)
}
