package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/taskgraph/internal/api"
	"github.com/mrz1836/taskgraph/internal/config"
	"github.com/mrz1836/taskgraph/internal/constants"
)

// BuildInfo carries version metadata set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// newRootCmd builds the single flat command the §6 surface describes: no
// subcommands, dispatch on which flags are set.
func newRootCmd(flags *Flags, info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskgraph",
		Short:         "taskgraph executes persistent, hierarchical workflow definitions",
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.Log, "log", string(constants.DefaultLogLevel), "log level (debug|verbose|info|warn|error)")
	cmd.Flags().StringVar(&flags.File, "file", "", "path to a workflow definition, or (with --id) a task-injection bundle")
	cmd.Flags().StringVar(&flags.ID, "id", "", "instance id (required together with --file for an update, or alone for --rewind)")
	cmd.Flags().IntVar(&flags.Rewind, "rewind", 0, "retrieve a historical save point for --id")
	cmd.Flags().StringVar(&flags.Delete, "delete", "", "remove the single instance with this id")
	cmd.Flags().BoolVar(&flags.DeleteAll, "deleteALL", false, "remove every instance")

	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute loads configuration, builds the API, and runs the root command
// with ctx. Callers should pass the resulting error to ExitCodeForError.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &Flags{}
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}

// loadAPI loads configuration (§6 DB_TYPE/DB_DIR/DB_HOST/DB_PORT via
// internal/config) and initializes the API from it. run then applies
// --log on top via API.SetLogLevel.
func loadAPI(ctx context.Context) (*api.API, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return api.Init(ctx, cfg)
}
