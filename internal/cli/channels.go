package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playout/internal/catalog"
)

func newChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the channels known to the project",
		RunE:  runChannels,
	}
}

func runChannels(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		channels, err := rt.svc.Channels(cmd.Context())
		if err != nil {
			return err
		}
		if channels == nil {
			channels = []catalog.Channel{}
		}

		if outputJSON {
			return writeJSON(cmd, map[string]any{"channels": channels})
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tNAME")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ch.ID, ch.Kind, ch.Name)
		}
		return w.Flush()
	})
}
