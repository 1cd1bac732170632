package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X playout/internal/cli.version=...".
var version = "dev"

var (
	projectDir string
	outputJSON bool
)

// Execute runs the CLI and exits non-zero on failure. Conflicts and pending
// resolutions exit with 2 so scripts can tell them from hard errors.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "playout",
		Short:         "Plan per-channel TV and radio day schedules",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&projectDir, "project", "", "project directory (default: working directory)")
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "print JSON instead of tables")

	groups := []struct {
		id, title string
		cmds      []*cobra.Command
	}{
		{"timeline", "Timeline commands:", []*cobra.Command{
			newDayCmd(), newScheduleCmd(), newMoveCmd(), newReorderCmd(), newRemoveCmd(), newStatusCmd(),
		}},
		{"batch", "Batch commands:", []*cobra.Command{newDuplicateCmd(), newImportCmd()}},
		{"catalog", "Catalog commands:", []*cobra.Command{newChannelsCmd(), newMediaCmd()}},
		{"project", "Project commands:", []*cobra.Command{
			newInitCmd(), newConfigCmd(), newCheckCmd(), newToolsCmd(), newMigrateCmd(), newServeCmd(),
		}},
	}
	for _, g := range groups {
		root.AddGroup(&cobra.Group{ID: g.id, Title: g.title})
		for _, c := range g.cmds {
			c.GroupID = g.id
			root.AddCommand(c)
		}
	}
	return root
}
