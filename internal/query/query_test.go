package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasket/internal/task"
)

var now = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.Local)

func parse(t *testing.T, line string) Filter {
	t.Helper()
	f, err := Parse(strings.Fields(line), now)
	require.NoError(t, err)
	return f
}

func TestParseClassification(t *testing.T) {
	f := parse(t, "16 31 +work -home project:site P1 due:2025-04-01 urgent fix")

	assert.Equal(t, []int{16, 31}, f.IDs)
	assert.Equal(t, []string{"work"}, f.Tags)
	assert.Equal(t, []string{"home"}, f.AntiTags)
	assert.Equal(t, "site", f.Project)
	assert.Equal(t, task.PriorityHigh, f.Priority)
	assert.Equal(t, DueOn, f.DueOp)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.Local), f.Due)
	assert.Equal(t, []string{"urgent", "fix"}, f.Text)
	assert.False(t, f.IgnoreContext)
}

func TestParseIDsStopAtFirstNonID(t *testing.T) {
	f := parse(t, "4 5 foo 6")
	assert.Equal(t, []int{4, 5}, f.IDs)
	assert.Equal(t, []string{"foo", "6"}, f.Text)
}

func TestParseBypassToken(t *testing.T) {
	f := parse(t, "3 -- +work")
	assert.True(t, f.IgnoreContext)
	assert.Equal(t, []int{3}, f.IDs)
	assert.Equal(t, []string{"work"}, f.Tags)
	assert.NotContains(t, f.Text, "--")
}

func TestParseNoteMode(t *testing.T) {
	f := parse(t, "7 +done / called P1 the +plumber")
	assert.Equal(t, []int{7}, f.IDs)
	assert.Equal(t, []string{"done"}, f.Tags)
	// everything after the slash is note text verbatim
	assert.Equal(t, "called P1 the +plumber", f.Note)
	assert.Empty(t, f.Priority)
}

func TestParseProjectForms(t *testing.T) {
	assert.Equal(t, "site", parse(t, "+project:site").Project)
	assert.Equal(t, "site", parse(t, "project:Site").Project)
	assert.Equal(t, "site", parse(t, "-project:site").AntiProject)
}

func TestParseDueForms(t *testing.T) {
	f := parse(t, "due.before:2025-04-01")
	assert.Equal(t, DueBefore, f.DueOp)

	f = parse(t, "due.after:tomorrow")
	assert.Equal(t, DueAfter, f.DueOp)
	assert.Equal(t, time.Date(2025, time.March, 13, 0, 0, 0, 0, time.Local), f.Due)

	f = parse(t, "due.in:friday")
	assert.Equal(t, DueOn, f.DueOp)

	f = parse(t, "due:overdue")
	assert.Equal(t, DueOverdue, f.DueOp)
	assert.Equal(t, now, f.Due)
}

func TestParseDueErrors(t *testing.T) {
	_, err := Parse(strings.Fields("due:2025-04-01 due:tomorrow"), now)
	assert.ErrorIs(t, err, ErrParse)

	_, err = Parse(strings.Fields("due.someday:2025-04-01"), now)
	assert.ErrorIs(t, err, ErrParse)

	_, err = Parse([]string{"due:"}, now)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseTemplate(t *testing.T) {
	f := parse(t, "template:4 +extra")
	assert.Equal(t, 4, f.Template)
	assert.Equal(t, []string{"extra"}, f.Tags)

	_, err := Parse([]string{"template:x"}, now)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParsePriorityFirstWins(t *testing.T) {
	f := parse(t, "P1 P3")
	assert.Equal(t, task.PriorityHigh, f.Priority)
	assert.Equal(t, []string{"P3"}, f.Text)
}

func newTask(summary string) *task.Task {
	tk := task.New(summary)
	return tk
}

func TestMatchesConjunction(t *testing.T) {
	tk := newTask("deploy the website")
	tk.Tags = []string{"work"}
	tk.Project = "site"
	tk.Priority = task.PriorityHigh
	tk.ID = 2

	assert.True(t, parse(t, "+work project:site P1").Matches(tk))
	assert.True(t, parse(t, "2 +work").Matches(tk))
	assert.True(t, parse(t, "website").Matches(tk))
	assert.True(t, parse(t, "WEBSITE").Matches(tk))

	assert.False(t, parse(t, "+work +home").Matches(tk))
	assert.False(t, parse(t, "-work").Matches(tk))
	assert.False(t, parse(t, "project:other").Matches(tk))
	assert.False(t, parse(t, "-project:site").Matches(tk))
	assert.False(t, parse(t, "P3").Matches(tk))
	assert.False(t, parse(t, "3").Matches(tk))
	assert.False(t, parse(t, "nonsense").Matches(tk))
}

func TestMatchesNotes(t *testing.T) {
	tk := newTask("call plumber")
	tk.Notes = "quoted £300 for the Boiler\n"
	assert.True(t, parse(t, "boiler").Matches(tk))
}

func TestMatchesDue(t *testing.T) {
	tk := newTask("renew insurance")
	tk.Due = time.Date(2025, time.March, 20, 0, 0, 0, 0, time.Local)

	assert.True(t, parse(t, "due:2025-03-20").Matches(tk))
	assert.False(t, parse(t, "due:2025-03-21").Matches(tk))

	// before is inclusive of the boundary day
	assert.True(t, parse(t, "due.before:2025-03-20").Matches(tk))
	assert.True(t, parse(t, "due.before:2025-03-25").Matches(tk))
	assert.False(t, parse(t, "due.before:2025-03-19").Matches(tk))

	assert.True(t, parse(t, "due.after:2025-03-20").Matches(tk))
	assert.False(t, parse(t, "due.after:2025-03-21").Matches(tk))
}

func TestMatchesDueAbsent(t *testing.T) {
	tk := newTask("no deadline")
	for _, line := range []string{"due:today", "due.before:2030-01-01", "due.after:2000-01-01", "due:overdue"} {
		assert.False(t, parse(t, line).Matches(tk), line)
	}
}

func TestMatchesOverdue(t *testing.T) {
	f := parse(t, "due:overdue")

	late := newTask("late")
	late.Due = now.AddDate(0, 0, -3)
	assert.True(t, f.Matches(late))

	future := newTask("future")
	future.Due = now.AddDate(0, 0, 3)
	assert.False(t, f.Matches(future))

	done := newTask("done late")
	done.Due = now.AddDate(0, 0, -3)
	require.NoError(t, done.Resolve())
	assert.False(t, f.Matches(done))
}

func TestApply(t *testing.T) {
	tk := newTask("adjust me")
	tk.Tags = []string{"a"}
	tk.Project = "old"

	parse(t, "+b -a project:new P0 due:2025-05-01").Apply(tk)

	assert.Equal(t, []string{"b"}, tk.Tags)
	assert.Equal(t, "new", tk.Project)
	assert.Equal(t, task.PriorityCritical, tk.Priority)
	assert.Equal(t, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.Local), tk.Due)
	assert.True(t, tk.WritePending)
}

func TestApplyAntiProject(t *testing.T) {
	tk := newTask("homeless")
	tk.Project = "site"
	parse(t, "-project:site").Apply(tk)
	assert.Empty(t, tk.Project)

	tk.Project = "other"
	parse(t, "-project:site").Apply(tk)
	assert.Equal(t, "other", tk.Project)
}

func TestApplyNoteAppends(t *testing.T) {
	tk := newTask("noted")
	parse(t, "/ first line").Apply(tk)
	parse(t, "/ second line").Apply(tk)
	assert.Equal(t, "first line\nsecond line\n", tk.Notes)
}

func TestMergeCommandWins(t *testing.T) {
	ctx := parse(t, "+work project:site P1")
	cmd := parse(t, "project:other P3 +urgent")

	merged := cmd.Merge(ctx)

	assert.ElementsMatch(t, []string{"urgent", "work"}, merged.Tags)
	assert.Equal(t, "other", merged.Project)
	assert.Equal(t, task.PriorityLow, merged.Priority)
}

func TestMergeFillsEmptyFields(t *testing.T) {
	ctx := parse(t, "+work project:site due.before:2025-04-01")
	merged := parse(t, "3").Merge(ctx)

	assert.Equal(t, []int{3}, merged.IDs)
	assert.Equal(t, []string{"work"}, merged.Tags)
	assert.Equal(t, "site", merged.Project)
	assert.Equal(t, DueBefore, merged.DueOp)
}

func TestValidateContext(t *testing.T) {
	assert.NoError(t, parse(t, "+work project:site P1").ValidateContext())
	assert.ErrorIs(t, parse(t, "3 +work").ValidateContext(), ErrContextFilter)
	assert.ErrorIs(t, parse(t, "free text").ValidateContext(), ErrContextFilter)
	assert.ErrorIs(t, parse(t, "/ a note").ValidateContext(), ErrContextFilter)
	assert.ErrorIs(t, parse(t, "template:2").ValidateContext(), ErrContextFilter)
}

func TestEmptyAndHasOperators(t *testing.T) {
	assert.True(t, Filter{}.Empty())
	assert.False(t, parse(t, "3").Empty())
	assert.False(t, parse(t, "3").HasOperators())
	assert.True(t, parse(t, "+work").HasOperators())
}

func TestStringRoundTrips(t *testing.T) {
	f := parse(t, "+work -home project:site P1 due:2025-04-01")
	again, err := Parse(strings.Fields(f.String()), now)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}
