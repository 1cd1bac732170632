package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playout/internal/tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the external tools playout can use",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show where each tool was found and whether its version is supported",
		RunE:  runToolsList,
	})

	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}

	statuses, err := tools.FromConfig(cfg.Tools).Detect(cmd.Context())
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd, map[string]any{"tools": statuses})
	}
	writeToolTable(cmd.OutOrStdout(), statuses)
	return nil
}

func writeToolTable(out io.Writer, statuses []tools.Status) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tPURPOSE\tSOURCE\tVERSION\tMINIMUM\tOK\tPATH")
	for _, st := range statuses {
		ok := "no"
		switch {
		case st.Satisfied:
			ok = "yes"
		case st.Optional && st.Missing():
			ok = "optional"
		}
		path := st.Path
		if st.Missing() {
			path = "(missing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			st.Tool, st.Purpose, nonEmpty(string(st.Source)), nonEmpty(st.Version), st.Minimum, ok, path)
	}
	w.Flush()

	for _, st := range statuses {
		if st.Error != "" {
			fmt.Fprintf(out, "%s: %s\n", st.Tool, st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(out, "%s: %s\n", st.Tool, note)
		}
		if st.Missing() && len(st.Hints) > 0 {
			fmt.Fprintf(out, "  install: %s\n", strings.Join(st.Hints, " | "))
		}
	}
}

func nonEmpty(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
