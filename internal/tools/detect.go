package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"playout/internal/config"
	"playout/internal/probe"
)

// Detector locates external tools and checks their versions.
type Detector struct {
	// Paths pins a tool to an explicit binary, keyed by tool name.
	Paths map[string]string
	// Runner executes the version switch. Defaults to probe.CmdRunner.
	Runner probe.Runner
	// LookPath resolves executables on PATH. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Minimums raises built-in version floors, keyed by tool name.
	Minimums map[string]string
}

// FromConfig builds a detector for the project's tools section.
func FromConfig(cfg config.ToolsConfig) *Detector {
	d := &Detector{Paths: map[string]string{"ffprobe": cfg.FFProbe}}
	if v := strings.TrimSpace(cfg.MinimumFFProbe); v != "" {
		d.Minimums = map[string]string{"ffprobe": v}
	}
	return d
}

// Detect returns the status of each known tool using PATH lookup.
func Detect(ctx context.Context) ([]Status, error) {
	return (&Detector{}).Detect(ctx)
}

// Detect returns the status of each known tool, sorted by name.
func (d *Detector) Detect(ctx context.Context) ([]Status, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	var statuses []Status
	for _, name := range KnownTools() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		def, _ := Definition(name)
		statuses = append(statuses, d.detectOne(ctx, def))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Tool < statuses[j].Tool })
	return statuses, nil
}

// Lookup returns the resolved binary path for name, or an error when the
// tool cannot be located.
func (d *Detector) Lookup(name string) (string, error) {
	def, ok := Definition(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	path, _, err := d.locate(def)
	return path, err
}

func (d *Detector) detectOne(ctx context.Context, def ToolDefinition) Status {
	minimum, notes := d.minimumFor(def)
	status := Status{Tool: def.Name, Purpose: def.Purpose, Minimum: minimum, Optional: def.Optional, Notes: notes}

	path, source, err := d.locate(def)
	if err != nil {
		status.Error = err.Error()
		status.Hints = def.installHints()
		return status
	}
	status.Path = path
	status.Source = source

	version, err := readVersion(ctx, d.runner(), def, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, minimum)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, minimum)
	}
	return status
}

func (d *Detector) locate(def ToolDefinition) (string, Source, error) {
	if pinned := strings.TrimSpace(d.Paths[def.Name]); pinned != "" {
		if _, err := os.Stat(pinned); err != nil {
			return "", SourceConfig, fmt.Errorf("configured %s not usable: %w", def.Name, err)
		}
		return pinned, SourceConfig, nil
	}
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(def.Binary.Executable)
	if err != nil {
		return "", SourceUnknown, fmt.Errorf("%s not found in PATH", def.Binary.Executable)
	}
	return path, SourceSystem, nil
}

func (d *Detector) runner() probe.Runner {
	if d.Runner != nil {
		return d.Runner
	}
	return probe.CmdRunner{}
}
