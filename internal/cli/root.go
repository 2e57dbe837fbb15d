// Package cli wires the command surface to the engine packages. Filter
// arguments pass through cobra unparsed so tokens like +tag and -tag reach
// the query parser untouched.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tasket/internal/commands"
	"tasket/internal/config"
	"tasket/internal/query"
	"tasket/internal/store"
	"tasket/internal/task"
)

var (
	repoFlag  string
	debugFlag bool
)

func Execute() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	// The bare invocation defaults to next, so the root takes filter
	// tokens itself and must leave them unparsed like the filter commands.
	root := &cobra.Command{
		Use:                "tasket",
		Short:              "git-backed task tracker",
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if debugFlag || os.Getenv("TASKET_DEBUG") != "" {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: filterRunE(runNext),
	}
	root.PersistentFlags().StringVar(&repoFlag, "repo", "", "task repository path")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	root.AddCommand(
		newFilterCmd("next", "List actionable tasks", runNext),
		newFilterCmd("show-open", "List all unresolved tasks", runShowOpen),
		newFilterCmd("show-active", "List started tasks", runShowActive),
		newFilterCmd("show-paused", "List stopped tasks", runShowPaused),
		newFilterCmd("show-resolved", "List resolved tasks", runShowResolved),
		newFilterCmd("show-templates", "List task templates", runShowTemplates),
		newFilterCmd("show-unorganised", "List tasks with no tags or project", runShowUnorganised),
		newPlainCmd("show-projects", "Summarise progress per project", runShowProjects),
		newPlainCmd("show-tags", "List tags on unresolved tasks", runShowTags),
		newFilterCmd("add", "Add a task", runAdd),
		newFilterCmd("log", "Record an already-done task", runLog),
		newFilterCmd("template", "Create a template or convert tasks to templates", runTemplate),
		newFilterCmd("start", "Start tasks", runStart),
		newFilterCmd("stop", "Stop started tasks", runStop),
		newFilterCmd("done", "Resolve tasks", runDone),
		newFilterCmd("open", "Reopen resolved tasks", runOpen),
		newFilterCmd("modify", "Change task attributes", runModify),
		newFilterCmd("remove", "Delete tasks permanently", runRemove),
		newFilterCmd("context", "Set, show or clear the persistent context", runContext),
		newPlainCmd("sync", "Pull then push the repository", runSync),
		newUndoCmd(),
		newGitCmd(),
	)
	return root
}

// newFilterCmd builds a command whose arguments are filter tokens. Flag
// parsing is off so -tag and friends survive; --repo and --debug are
// stripped by hand.
func newFilterCmd(use, short string, run func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Short:              short,
		DisableFlagParsing: true,
		RunE:               filterRunE(run),
	}
}

// filterRunE wraps a handler of unparsed filter tokens: help requests are
// honoured, --repo and --debug are stripped by hand, and the logging setup
// reruns since cobra never parsed the flags.
func filterRunE(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for _, a := range args {
			if a == "--help" || a == "-h" {
				return cmd.Help()
			}
		}
		rest, err := extractGlobalFlags(args)
		if err != nil {
			return err
		}
		cmd.Root().PersistentPreRun(cmd, rest)
		return run(cmd, rest)
	}
}

func newPlainCmd(use, short string, run func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

// extractGlobalFlags pulls --repo/--debug out of an unparsed argument list.
func extractGlobalFlags(args []string) ([]string, error) {
	var rest []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--debug":
			debugFlag = true
		case args[i] == "--repo":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--repo requires a value")
			}
			i++
			repoFlag = args[i]
		case strings.HasPrefix(args[i], "--repo="):
			repoFlag = strings.TrimPrefix(args[i], "--repo=")
		default:
			rest = append(rest, args[i])
		}
	}
	return rest, nil
}

// newSession opens the repository and context state for one invocation.
func newSession(cmd *cobra.Command) (*commands.Session, error) {
	cfg, err := config.Load(repoFlag)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Repo, cfg.CommitStrategy)
	if err != nil {
		return nil, err
	}
	state, err := store.LoadState(cfg.StateFile, cfg.ContextOverride)
	if err != nil {
		return nil, err
	}
	return commands.NewSession(st, state, cmd.OutOrStdout()), nil
}

func parseFilter(args []string) (query.Filter, error) {
	return query.Parse(args, time.Now())
}

func sessionAndFilter(cmd *cobra.Command, args []string) (*commands.Session, query.Filter, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, query.Filter{}, err
	}
	f, err := parseFilter(args)
	if err != nil {
		return nil, query.Filter{}, err
	}
	return s, f, nil
}

// listView runs one of the task listing views and renders the result with
// the active context banner.
func listView(cmd *cobra.Command, args []string, pick func(*commands.Session, query.Filter) ([]*task.Task, error)) error {
	s, f, err := sessionAndFilter(cmd, args)
	if err != nil {
		return err
	}
	tasks, err := pick(s, f)
	if err != nil {
		return err
	}
	banner := ""
	if ctx := s.State.ContextFor(f); !ctx.Empty() {
		banner = "context: " + ctx.String()
	}
	return renderTasks(cmd.OutOrStdout(), tasks, banner)
}
