package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver finds data files relative to the binary, the working
// directory and the user config directory.
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver builds a resolver for the application app.
func NewPathResolver(app string) *PathResolver {
	execDir, err := GetExecutableDir()
	if err != nil {
		log.Debugf("Could not resolve executable dir: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		home = os.TempDir()
	}
	return &PathResolver{
		executableDir: execDir,
		configDir:     configDirFor(home, app),
	}
}

func configDirFor(home, app string) string {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, app)
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, app)
		}
	}
	return filepath.Join(home, ".config", app)
}

// ConfigDir returns the per-user config directory.
func (pr *PathResolver) ConfigDir() string { return pr.configDir }

// Candidates lists the locations tried for name, most specific first.
func (pr *PathResolver) Candidates(name string) []string {
	if filepath.IsAbs(name) {
		return []string{name}
	}
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, name))
	}
	if pr.executableDir != "" {
		paths = append(paths,
			filepath.Join(pr.executableDir, name),
			filepath.Join(pr.executableDir, "data", name))
	}
	return append(paths, filepath.Join(pr.configDir, "data", name))
}

// Find returns the first existing candidate for name.
func (pr *PathResolver) Find(name string) (string, error) {
	candidates := pr.Candidates(name)
	for _, p := range candidates {
		if FileExists(p) {
			log.Debugf("Resolved %s to %s", name, p)
			return p, nil
		}
		log.Debugf("Candidate not found: %s", p)
	}
	return "", fmt.Errorf("%s not found in %v: %w", name, candidates, os.ErrNotExist)
}
