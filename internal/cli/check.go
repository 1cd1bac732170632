package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"playout/internal/config"
	"playout/internal/logx"
	"playout/internal/tools"
	"playout/internal/tui"
)

var checkStrict bool

const backendCheckTimeout = 10 * time.Second

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check tools, configuration and backend reachability",
		RunE:  runCheck,
	}
	cmd.Flags().BoolVar(&checkStrict, "strict", false, "fail on config errors, unreachable backends or unusable required tools")
	return cmd
}

// backendStatus is the reachability of one storage or messaging component.
type backendStatus struct {
	Component string `json:"component"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type checkReport struct {
	Project     string                    `json:"project"`
	Tools       []tools.Status            `json:"tools"`
	Validations []config.ValidationResult `json:"validations,omitempty"`
	Backends    []backendStatus           `json:"backends"`
}

// problems lists what --strict fails on.
func (r checkReport) problems() []string {
	var out []string
	if err := ensureStrict(r.Tools); err != nil {
		out = append(out, err.Error())
	}
	for _, v := range r.Validations {
		if v.Level == "error" {
			out = append(out, "config: "+v.Message)
		}
	}
	for _, b := range r.Backends {
		if !b.OK {
			out = append(out, fmt.Sprintf("%s unreachable: %s", b.Component, b.Error))
		}
	}
	return out
}

func runCheck(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	if err := ensureProjectDirs(pp); err != nil {
		return err
	}
	logger, closer, err := logx.New(pp)
	if err != nil {
		return err
	}
	defer closer.Close()

	statuses, err := tools.FromConfig(cfg.Tools).Detect(cmd.Context())
	if err != nil {
		return err
	}
	report := checkReport{
		Project:     pp.Root,
		Tools:       statuses,
		Validations: cfg.ValidateStrict(),
		Backends:    checkBackends(cmd.Context()),
	}
	logger.WithFields(logrus.Fields{
		"project":     report.Project,
		"backend":     cfg.Store.Backend,
		"validations": len(report.Validations),
	}).Info("check finished")

	if outputJSON {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printCheckReport(cmd, report)
	}

	if !checkStrict {
		return nil
	}
	if problems := report.problems(); len(problems) > 0 {
		return errors.New("check failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// checkBackends opens a throwaway runtime and pings each component it holds.
// A runtime that cannot be opened is reported against the configured store.
func checkBackends(ctx context.Context) []backendStatus {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	rt, err := openRuntime(ctx, runtimeOptions{logger: logx.Discard()})
	if err != nil {
		return []backendStatus{{Component: "runtime", Error: err.Error()}}
	}
	defer rt.Close()
	return rt.Components(ctx)
}

func printCheckReport(cmd *cobra.Command, r checkReport) {
	ok := tui.StatusStyle(tui.StatusCommitted).Render("ok  ")
	fail := tui.StatusStyle(tui.StatusFailed).Render("FAIL")
	skip := tui.WarningStyle.Render("skip")

	cmd.Println(tui.TitleStyle.Render("playout check") + " " + r.Project)

	cmd.Println(tui.HeaderStyle.Render("\nBackends"))
	for _, b := range r.Backends {
		if b.OK {
			cmd.Printf("  %s %s\n", ok, b.Component)
			continue
		}
		cmd.Printf("  %s %s: %s\n", fail, b.Component, b.Error)
	}

	cmd.Println(tui.HeaderStyle.Render("\nTools"))
	for _, st := range r.Tools {
		mark := fail
		switch {
		case st.Satisfied:
			mark = ok
		case st.Optional && st.Missing():
			mark = skip
		}
		line := fmt.Sprintf("  %s %s", mark, st.Tool)
		if st.Version != "" {
			line += " " + st.Version
		}
		if st.Purpose != "" {
			line += " (" + st.Purpose + ")"
		}
		cmd.Println(line)
		if st.Error != "" {
			cmd.Println("       " + st.Error)
		}
		if st.Missing() {
			for _, hint := range st.Hints {
				cmd.Println("       install: " + hint)
			}
		}
	}

	cmd.Println(tui.HeaderStyle.Render("\nConfig"))
	if len(r.Validations) == 0 {
		cmd.Printf("  %s no findings\n", ok)
	}
	for _, v := range r.Validations {
		mark := skip
		if v.Level == "error" {
			mark = fail
		}
		cmd.Printf("  %s %s\n", mark, v.Message)
	}
}

// ensureStrict fails on tools that are present but unusable, or required and
// missing. Optional tools may be absent.
func ensureStrict(statuses []tools.Status) error {
	var failures []string
	for _, st := range statuses {
		if st.Satisfied || (st.Optional && st.Missing()) {
			continue
		}
		msg := st.Tool
		if st.Error != "" {
			msg = fmt.Sprintf("%s (%s)", st.Tool, st.Error)
		}
		failures = append(failures, msg)
	}
	if len(failures) == 0 {
		return nil
	}
	return errors.New("tools: " + strings.Join(failures, ", "))
}
