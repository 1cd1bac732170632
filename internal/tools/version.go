package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"playout/internal/probe"
)

// versionPattern matches the number after "version" in ffprobe banners,
// including git builds that prefix it with "n".
var versionPattern = regexp.MustCompile(`version\s+n?(\d+(?:\.\d+){0,2})`)

func readVersion(ctx context.Context, runner probe.Runner, def ToolDefinition, path string) (string, error) {
	res, err := runner.Run(ctx, path, []string{def.Binary.VersionSwitch}, probe.RunOptions{})
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", def.Name, def.Binary.VersionSwitch, err)
	}
	banner, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return parseVersion(banner), nil
}

// parseVersion extracts "6.1.1" from
// "ffprobe version 6.1.1-3ubuntu5 Copyright ...". Banners without a version
// number are returned unchanged.
func parseVersion(banner string) string {
	if m := versionPattern.FindStringSubmatch(banner); m != nil {
		return m[1]
	}
	return banner
}

// compareVersions orders dotted numeric versions; missing parts count as 0.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		x, y := part(as, i), part(bs, i)
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func part(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimFunc(parts[i], func(r rune) bool { return r < '0' || r > '9' }))
	return n
}

func meetsMinimum(version, minimum string) bool {
	switch {
	case minimum == "":
		return true
	case version == "":
		return false
	}
	return compareVersions(version, minimum) >= 0
}
