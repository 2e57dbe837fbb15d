package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tasket/internal/commands"
	"tasket/internal/query"
	"tasket/internal/task"
)

func runNext(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.Next(f)
	})
}

func runShowOpen(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowOpen(f)
	})
}

func runShowActive(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowActive(f)
	})
}

func runShowPaused(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowPaused(f)
	})
}

func runShowResolved(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowResolved(f)
	})
}

func runShowTemplates(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowTemplates(f)
	})
}

func runShowUnorganised(cmd *cobra.Command, args []string) error {
	return listView(cmd, args, func(s *commands.Session, f query.Filter) ([]*task.Task, error) {
		return s.ShowUnorganised(f)
	})
}

func runShowProjects(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	projects, err := s.ShowProjects()
	if err != nil {
		return err
	}
	return renderProjects(cmd.OutOrStdout(), projects)
}

func runShowTags(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	tags, err := s.ShowTags()
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), tag)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	_, err = s.Add(f)
	return err
}

func runLog(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	_, err = s.Log(f)
	return err
}

func runTemplate(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Template(f)
}

func runStart(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Start(f)
}

func runStop(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Stop(f)
}

func runDone(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Done(f)
}

func runOpen(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Open(f)
}

func runModify(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	return s.Modify(f)
}

func runRemove(cmd *cobra.Command, args []string) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	if len(f.IDs) > 0 && !confirm(fmt.Sprintf("Permanently remove %d task(s)?", len(f.IDs))) {
		fmt.Fprintln(cmd.OutOrStdout(), "aborted")
		return nil
	}
	return s.Remove(f)
}

func runContext(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return s.Context(args)
}

func runSync(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return s.Sync()
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo [n]",
		Short: "Discard the most recent change(s)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				var err error
				n, err = strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("undo count must be a positive integer, got %q", args[0])
				}
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return s.Undo(n)
		},
	}
}

func newGitCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "git [args...]",
		Short:              "Run git inside the task repository",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return s.Git(args)
		},
	}
}

func confirm(prompt string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
