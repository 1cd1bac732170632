package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"playout/internal/config"
	"playout/internal/logx"
	"playout/internal/paths"
	"playout/internal/tui"
)

var (
	configShowRaw    bool
	configShowReveal bool
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect, edit or validate playout.yaml",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file, .env and environment merged)",
		RunE:  runConfigShow,
	}
	show.Flags().BoolVar(&configShowRaw, "raw", false, "print playout.yaml as stored, without environment overrides")
	show.Flags().BoolVar(&configShowReveal, "reveal", false, "print DSNs and API keys unmasked")

	cmd.AddCommand(show)
	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open playout.yaml in $VISUAL or $EDITOR, then validate it",
		RunE:  runConfigEdit,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check channels, durations, store and server settings",
		RunE:  runConfigValidate,
	})
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	var cfg config.Config
	if configShowRaw {
		pp, err := paths.Resolve(projectDir)
		if err != nil {
			return err
		}
		if cfg, err = config.Load(pp.ConfigFile); err != nil {
			return err
		}
	} else {
		var err error
		if _, cfg, err = loadProjectConfig(); err != nil {
			return err
		}
	}
	if !configShowReveal {
		cfg = cfg.Redacted()
	}

	if outputJSON {
		return writeJSON(cmd, cfg)
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	return reportValidation(cmd, pp.ConfigFile, cfg.ValidateStrict())
}

// reportValidation prints findings and fails when any of them is an error.
func reportValidation(cmd *cobra.Command, file string, results []config.ValidationResult) error {
	if outputJSON {
		if err := writeJSON(cmd, map[string]any{"config": file, "validations": results}); err != nil {
			return err
		}
	} else {
		writeValidations(cmd.ErrOrStderr(), results)
		if !config.HasErrors(results) {
			cmd.Printf("%s is valid\n", file)
		}
	}
	if config.HasErrors(results) {
		return errors.New("config validation failed")
	}
	return nil
}

func writeValidations(w io.Writer, results []config.ValidationResult) {
	for _, r := range results {
		line := fmt.Sprintf("%s: %s", r.Level, r.Message)
		if r.Level != "error" {
			line = tui.WarningStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	var created []string
	if err := ensureConfig(pp, &created, logx.Discard()); err != nil {
		return err
	}

	editor := editorCommand()
	argv := append(editor, pp.ConfigFile)
	ed := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...)
	ed.Stdin = cmd.InOrStdin()
	ed.Stdout = cmd.OutOrStdout()
	ed.Stderr = cmd.ErrOrStderr()
	ed.Dir = pp.Root
	if err := ed.Run(); err != nil {
		return fmt.Errorf("run %s: %w", editor[0], err)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return reportValidation(cmd, pp.ConfigFile, cfg.ValidateStrict())
}

// editorCommand splits $VISUAL or $EDITOR on whitespace, so values such as
// "code -w" work. It falls back to vi.
func editorCommand() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
