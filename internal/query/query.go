// Package query parses filter token sequences into structured predicates
// and evaluates them against tasks.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasket/internal/task"
)

var (
	ErrParse         = errors.New("could not parse filter")
	ErrContextFilter = errors.New("invalid context filter")
)

// Due constraint operators.
const (
	DueOn      = "on"
	DueBefore  = "before"
	DueAfter   = "after"
	DueOverdue = "overdue"
)

const (
	bypassToken   = "--"
	noteToken     = "/"
	projectPrefix = "project:"
)

// Filter is an ephemeral structured predicate parsed from command tokens.
// A task matches when every populated field is satisfied.
type Filter struct {
	IDs         []int
	Tags        []string
	AntiTags    []string
	Project     string
	AntiProject string
	Priority    string
	DueOp       string
	Due         time.Time
	Text        []string
	Template    int
	Note        string

	// IgnoreContext is set when the bypass token appears anywhere in the
	// stream; the token itself is never classified as text.
	IgnoreContext bool
}

// Parse classifies raw tokens left to right. Digit-only tokens accumulate
// into IDs until the first non-ID token; after that they become text terms.
func Parse(tokens []string, now time.Time) (Filter, error) {
	var f Filter

	// The bypass token is consumed wherever it appears, before the rest of
	// the stream is classified.
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == bypassToken {
			f.IgnoreContext = true
			continue
		}
		kept = append(kept, tok)
	}

	idsExhausted := false
	noteMode := false
	var note []string

	for _, tok := range kept {
		if noteMode {
			note = append(note, tok)
			continue
		}
		lc := strings.ToLower(tok)

		if !idsExhausted {
			if id, err := strconv.Atoi(tok); err == nil && id > 0 {
				f.IDs = append(f.IDs, id)
				continue
			}
			idsExhausted = true
		}

		switch {
		case tok == noteToken:
			noteMode = true
		case strings.HasPrefix(lc, projectPrefix):
			if f.Project == "" {
				f.Project = strings.TrimPrefix(lc, projectPrefix)
			}
		case strings.HasPrefix(lc, "+"+projectPrefix):
			if f.Project == "" {
				f.Project = strings.TrimPrefix(lc, "+"+projectPrefix)
			}
		case strings.HasPrefix(lc, "-"+projectPrefix):
			f.AntiProject = strings.TrimPrefix(lc, "-"+projectPrefix)
		case strings.HasPrefix(lc, "due:") || strings.HasPrefix(lc, "due."):
			if f.DueOp != "" {
				return Filter{}, fmt.Errorf("%w: more than one due constraint", ErrParse)
			}
			op, due, err := parseDueArg(lc, now)
			if err != nil {
				return Filter{}, err
			}
			f.DueOp, f.Due = op, due
		case strings.HasPrefix(lc, "template:"):
			n, err := strconv.Atoi(strings.TrimPrefix(lc, "template:"))
			if err != nil || n <= 0 {
				return Filter{}, fmt.Errorf("%w: bad template reference %q", ErrParse, tok)
			}
			f.Template = n
		case strings.HasPrefix(tok, "+") && len(tok) > 1:
			f.Tags = append(f.Tags, strings.TrimPrefix(lc, "+"))
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			f.AntiTags = append(f.AntiTags, strings.TrimPrefix(lc, "-"))
		case f.Priority == "" && task.ValidPriority(tok):
			f.Priority = tok
		default:
			f.Text = append(f.Text, tok)
		}
	}

	f.Note = strings.Join(note, " ")
	return f, nil
}

// parseDueArg handles due:<expr>, due.before:<expr>, due.after:<expr>,
// due.on:<expr> plus the canned due:overdue and due:today constraints.
func parseDueArg(arg string, now time.Time) (string, time.Time, error) {
	head, expr, found := strings.Cut(arg, ":")
	if !found || expr == "" {
		return "", time.Time{}, fmt.Errorf("%w: bad due constraint %q", ErrParse, arg)
	}

	op := DueOn
	if _, filter, dotted := strings.Cut(head, "."); dotted {
		switch filter {
		case DueBefore, DueAfter, DueOn, "in":
			op = filter
			if op == "in" {
				op = DueOn
			}
		default:
			return "", time.Time{}, fmt.Errorf("%w: unknown due operator %q", ErrParse, filter)
		}
	}

	if expr == "overdue" {
		return DueOverdue, now, nil
	}

	due, err := task.ResolveDate(expr, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return op, due, nil
}

// Matches evaluates the filter against a task. Every populated field must be
// satisfied; a task with no due date never satisfies a due constraint.
func (f Filter) Matches(t *task.Task) bool {
	if len(f.IDs) > 0 && !containsInt(f.IDs, t.ID) {
		return false
	}
	for _, tag := range f.Tags {
		if !t.HasTag(tag) {
			return false
		}
	}
	for _, tag := range f.AntiTags {
		if t.HasTag(tag) {
			return false
		}
	}
	if f.Project != "" && t.Project != f.Project {
		return false
	}
	if f.AntiProject != "" && t.Project == f.AntiProject {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.DueOp != "" {
		if t.Due.IsZero() {
			return false
		}
		switch f.DueOp {
		case DueBefore:
			if t.Due.After(f.Due) {
				return false
			}
		case DueAfter:
			if t.Due.Before(f.Due) {
				return false
			}
		case DueOn:
			if !task.SameDay(t.Due, f.Due) {
				return false
			}
		case DueOverdue:
			if !t.Due.Before(f.Due) || t.Status == task.StatusResolved {
				return false
			}
		}
	}
	for _, term := range f.Text {
		lcTerm := strings.ToLower(term)
		if !strings.Contains(strings.ToLower(t.Summary), lcTerm) &&
			!strings.Contains(strings.ToLower(t.Notes), lcTerm) {
			return false
		}
	}
	return true
}

// Apply modifies a task with the filter's attribute set: tags and anti-tags
// act as add/remove, project/priority/due replace, and the note appends.
func (f Filter) Apply(t *task.Task) {
	for _, tag := range f.Tags {
		t.AddTag(tag)
	}
	for _, tag := range f.AntiTags {
		t.RemoveTag(tag)
	}
	if f.Project != "" {
		t.Project = f.Project
	}
	if f.AntiProject != "" && t.Project == f.AntiProject {
		t.Project = ""
	}
	if f.Priority != "" {
		t.Priority = f.Priority
	}
	if f.DueOp != "" {
		t.Due = f.Due
	}
	if f.Note != "" {
		if t.Notes != "" && !strings.HasSuffix(t.Notes, "\n") {
			t.Notes += "\n"
		}
		t.Notes += f.Note + "\n"
	}
	t.WritePending = true
}

// Merge layers a persisted context under the filter. Constraints union
// across different fields; where both populate the same field the filter's
// own value wins.
func (f Filter) Merge(ctx Filter) Filter {
	merged := f
	for _, tag := range ctx.Tags {
		if !containsString(merged.Tags, tag) {
			merged.Tags = append(merged.Tags, tag)
		}
	}
	for _, tag := range ctx.AntiTags {
		if !containsString(merged.AntiTags, tag) {
			merged.AntiTags = append(merged.AntiTags, tag)
		}
	}
	if merged.Project == "" {
		merged.Project = ctx.Project
	}
	if merged.AntiProject == "" {
		merged.AntiProject = ctx.AntiProject
	}
	if merged.Priority == "" {
		merged.Priority = ctx.Priority
	}
	if merged.DueOp == "" {
		merged.DueOp, merged.Due = ctx.DueOp, ctx.Due
	}
	return merged
}

// ValidateContext rejects fields that may not be persisted as a context.
func (f Filter) ValidateContext() error {
	if len(f.IDs) > 0 {
		return fmt.Errorf("%w: context cannot contain task IDs", ErrContextFilter)
	}
	if len(f.Text) > 0 || f.Note != "" {
		return fmt.Errorf("%w: context cannot contain text", ErrContextFilter)
	}
	if f.Template > 0 {
		return fmt.Errorf("%w: context cannot reference a template", ErrContextFilter)
	}
	return nil
}

// HasOperators reports whether any constraint beyond IDs is populated.
func (f Filter) HasOperators() bool {
	return len(f.Tags) > 0 || len(f.AntiTags) > 0 ||
		f.Project != "" || f.AntiProject != "" ||
		f.Priority != "" || f.DueOp != "" ||
		len(f.Text) > 0 || f.Template > 0
}

// Empty reports a filter with no populated fields at all.
func (f Filter) Empty() bool {
	return len(f.IDs) == 0 && !f.HasOperators() && f.Note == ""
}

// String reconstructs the filter as a token string.
func (f Filter) String() string {
	var args []string
	for _, id := range f.IDs {
		args = append(args, strconv.Itoa(id))
	}
	for _, tag := range f.Tags {
		args = append(args, "+"+tag)
	}
	for _, tag := range f.AntiTags {
		args = append(args, "-"+tag)
	}
	if f.Project != "" {
		args = append(args, projectPrefix+f.Project)
	}
	if f.AntiProject != "" {
		args = append(args, "-"+projectPrefix+f.AntiProject)
	}
	if f.DueOp != "" {
		if f.DueOp == DueOn {
			args = append(args, "due:"+f.Due.Format("2006-01-02"))
		} else {
			args = append(args, "due."+f.DueOp+":"+f.Due.Format("2006-01-02"))
		}
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
	}
	if f.Template > 0 {
		args = append(args, "template:"+strconv.Itoa(f.Template))
	}
	if len(f.Text) > 0 {
		args = append(args, strconv.Quote(strings.Join(f.Text, " ")))
	}
	return strings.Join(args, " ")
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
