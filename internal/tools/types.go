package tools

// Source tells where a tool binary was found.
type Source string

const (
	SourceUnknown Source = ""
	SourceConfig  Source = "config"
	SourceSystem  Source = "system"
)

// Status is the detection result for one tool, as printed by `check` and
// `tools list`.
type Status struct {
	Tool      string   `json:"tool"`
	Purpose   string   `json:"purpose,omitempty"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Source    Source   `json:"source"`
	Path      string   `json:"path,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Optional  bool     `json:"optional"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// Missing reports whether the binary could not be located at all.
func (s Status) Missing() bool {
	return s.Path == ""
}

// BinarySpec names a tool's executable and its version flag.
type BinarySpec struct {
	ID            string
	Executable    string
	VersionSwitch string
}

// ToolDefinition describes an external tool playout can use.
type ToolDefinition struct {
	Name           string
	Purpose        string
	MinimumVersion string
	Binary         BinarySpec
	// Optional tools only produce a warning when missing.
	Optional bool
	// Hints holds install instructions keyed by GOOS.
	Hints map[string][]string
}
