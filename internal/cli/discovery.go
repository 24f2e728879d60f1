package cli

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wagiedev/claude-control-go/internal/errors"
)

// binaryName is the executable searched for in PATH.
const binaryName = "claude"

// Config holds configuration for CLI discovery.
type Config struct {
	// CliPath is an explicit CLI path that skips the search.
	CliPath string

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discover returns the path of the CLI binary, or a *errors.CLINotFoundError
// listing every location that was tried.
func Discover(cfg *Config) (string, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cfg.CliPath != "" {
		log.Debug("Using explicit CLI path", "cli_path", cfg.CliPath)

		if info, err := os.Stat(cfg.CliPath); err == nil && !info.IsDir() {
			return cfg.CliPath, nil
		}

		return "", &errors.CLINotFoundError{SearchedPaths: []string{cfg.CliPath}}
	}

	if path, err := exec.LookPath(binaryName); err == nil {
		log.Debug("Found CLI in PATH", "cli_path", path)

		return path, nil
	}

	searched := []string{"$PATH"}

	for _, candidate := range commonLocations() {
		searched = append(searched, candidate)

		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			log.Debug("Found CLI in common location", "cli_path", candidate)

			return candidate, nil
		}
	}

	return "", &errors.CLINotFoundError{SearchedPaths: searched}
}

func commonLocations() []string {
	locations := []string{
		"/usr/local/bin/" + binaryName,
		"/usr/bin/" + binaryName,
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".local", "bin", binaryName),
			filepath.Join(home, ".claude", "local", binaryName),
		)
	}

	return locations
}
