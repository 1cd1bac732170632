package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"playout/internal/config"
)

// ProjectPaths captures canonical locations for a playout project.
type ProjectPaths struct {
	Root         string
	ConfigFile   string
	EnvFile      string
	MetaDir      string
	LogsDir      string
	ScheduleFile string
	CatalogFile  string
	LockFile     string
}

// Resolve anchors a project at dir, or at the working directory when dir is
// empty.
func Resolve(dir string) (ProjectPaths, error) {
	root, err := os.Getwd()
	if dir != "" {
		root, err = filepath.Abs(dir)
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".playout")
	return ProjectPaths{
		Root:         root,
		ConfigFile:   filepath.Join(root, "playout.yaml"),
		EnvFile:      filepath.Join(root, ".env"),
		MetaDir:      metaDir,
		LogsDir:      filepath.Join(root, "logs"),
		ScheduleFile: filepath.Join(metaDir, "schedule.json"),
		CatalogFile:  filepath.Join(metaDir, "catalog.json"),
		LockFile:     filepath.Join(metaDir, "store.lock"),
	}
}

// ApplyConfig resolves config-relative locations. A file-backed DSN names
// an alternative metadata directory.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if cfg.Store.Backend != config.BackendFile {
		return pp
	}
	dir := strings.TrimSpace(cfg.Store.DSN)
	if dir == "" {
		return pp
	}
	meta := resolveProjectPath(pp.Root, dir)
	pp.MetaDir = meta
	pp.ScheduleFile = filepath.Join(meta, "schedule.json")
	pp.CatalogFile = filepath.Join(meta, "catalog.json")
	pp.LockFile = filepath.Join(meta, "store.lock")
	return pp
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the store metadata directory and logs/.
func (p ProjectPaths) EnsureMetaDirs() error {
	for _, dir := range []string{p.MetaDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path is a regular file.
func FileExists(path string) (bool, error) {
	return statIs(path, func(fi os.FileInfo) bool { return fi.Mode().IsRegular() })
}

// DirExists reports whether path is a directory.
func DirExists(path string) (bool, error) {
	return statIs(path, os.FileInfo.IsDir)
}

func statIs(path string, match func(os.FileInfo) bool) (bool, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return match(fi), nil
}
