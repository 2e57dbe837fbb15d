// Package config resolves the runtime configuration from flags, the
// TASKET_* environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config carries everything the engine needs to know about its environment.
type Config struct {
	// Repo is the version-controlled task directory.
	Repo string
	// StateFile holds the persisted context, outside the task file area.
	StateFile string
	// ContextOverride, when non-empty, replaces the on-disk context with a
	// read-only one parsed from these tokens (TASKET_CONTEXT).
	ContextOverride string
	// CommitStrategy is "per_task" or "single".
	CommitStrategy string
}

// Load reads configuration with precedence: explicit repo flag, then
// environment, then config file, then defaults.
func Load(repoFlag string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TASKET")
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("repo", filepath.Join(home, ".tasket"))
	v.SetDefault("commit_strategy", "per_task")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".config", "tasket"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	repo := repoFlag
	if repo == "" {
		repo = v.GetString("repo")
	}

	cfg := &Config{
		Repo:            repo,
		StateFile:       filepath.Join(repo, ".git", "tasket", "context.yml"),
		ContextOverride: v.GetString("context"),
		CommitStrategy:  v.GetString("commit_strategy"),
	}
	return cfg, nil
}
