package tools

import (
	"fmt"
	"strings"
)

// minimumFor returns the version floor for def. A project may raise the
// built-in minimum but never lower it; both cases leave a note.
func (d *Detector) minimumFor(def ToolDefinition) (string, []string) {
	builtin := def.MinimumVersion
	override := ""
	for name, v := range d.Minimums {
		if strings.EqualFold(name, def.Name) {
			override = strings.TrimSpace(v)
		}
	}
	switch {
	case override == "" || override == builtin:
		return builtin, nil
	case compareVersions(override, builtin) > 0:
		return override, []string{fmt.Sprintf("minimum raised to %s by project config", override)}
	}
	return builtin, []string{fmt.Sprintf("project minimum %s ignored; %s needs at least %s", override, def.Name, builtin)}
}
