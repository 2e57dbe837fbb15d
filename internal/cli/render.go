package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"tasket/internal/store"
	"tasket/internal/task"
)

var (
	bannerColor   = color.New(color.FgYellow)
	criticalColor = color.New(color.FgRed, color.Bold)
	highColor     = color.New(color.FgRed)
	lowColor      = color.New(color.FgBlue)
	activeColor   = color.New(color.FgGreen)
)

func renderTasks(w io.Writer, tasks []*task.Task, banner string) error {
	if banner != "" {
		bannerColor.Fprintln(w, banner)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRI\tSTATUS\tTAGS\tPROJECT\tDUE\tSUMMARY")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			idCell(t),
			priorityCell(t.Priority),
			statusCell(t),
			strings.Join(t.Tags, " "),
			t.Project,
			dueCell(t),
			t.Summary,
		)
	}
	return tw.Flush()
}

func renderProjects(w io.Writer, projects []store.ProjectSummary) error {
	if len(projects) == 0 {
		fmt.Fprintln(w, "no projects")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tPRI\tOPEN\tRESOLVED\tACTIVE")
	for _, p := range projects {
		active := ""
		if p.Active {
			active = activeColor.Sprint("yes")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			p.Name, priorityCell(p.Priority), p.Tasks-p.TasksResolved, p.TasksResolved, active)
	}
	return tw.Flush()
}

func idCell(t *task.Task) string {
	if t.ID == 0 {
		// resolved tasks have no short ID, show a key prefix instead
		return strings.ToLower(t.Key[:8])
	}
	return fmt.Sprintf("%d", t.ID)
}

func priorityCell(p string) string {
	switch p {
	case task.PriorityCritical:
		return criticalColor.Sprint(p)
	case task.PriorityHigh:
		return highColor.Sprint(p)
	case task.PriorityLow:
		return lowColor.Sprint(p)
	default:
		return p
	}
}

func statusCell(t *task.Task) string {
	if t.Status == task.StatusActive {
		return activeColor.Sprint(t.Status)
	}
	return t.Status
}

func dueCell(t *task.Task) string {
	if t.Due.IsZero() {
		return ""
	}
	return t.Due.Format("2006-01-02")
}
