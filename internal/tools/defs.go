package tools

import (
	"runtime"
	"strings"
)

// ffprobe is the only external tool: the local-probe step of the duration
// resolver shells out to it. Playout runs without it, falling back to the
// catalog, remote providers and the default duration.
var known = []ToolDefinition{
	{
		Name:           "ffprobe",
		Purpose:        "local media duration probe",
		MinimumVersion: "4.4",
		Binary:         BinarySpec{ID: "ffprobe", Executable: executable("ffprobe"), VersionSwitch: "-version"},
		Optional:       true,
		Hints: map[string][]string{
			"darwin":  {"brew install ffmpeg"},
			"linux":   {"sudo apt install ffmpeg (or your distribution's ffmpeg package)"},
			"windows": {"winget install Gyan.FFmpeg", "choco install ffmpeg"},
		},
	},
}

func executable(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the tool names in detection order.
func KnownTools() []string {
	names := make([]string, len(known))
	for i, def := range known {
		names[i] = def.Name
	}
	return names
}

// Definition looks a tool up by name, ignoring case.
func Definition(name string) (ToolDefinition, bool) {
	for _, def := range known {
		if strings.EqualFold(def.Name, name) {
			return def, true
		}
	}
	return ToolDefinition{}, false
}

func (def ToolDefinition) installHints() []string {
	if hints, ok := def.Hints[runtime.GOOS]; ok {
		return hints
	}
	return []string{"install ffmpeg, which ships " + def.Name + ", with your package manager"}
}
