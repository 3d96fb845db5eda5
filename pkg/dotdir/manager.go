// Package dotdir manages the .stacks/ and ~/.stacks directories. The dot
// directory holds the persistent config.toml used by the serve, ingest,
// query and list commands.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".stacks"

// Manager resolves and creates stacks dot directories.
type Manager struct{}

// NewManager creates a new dot directory manager.
func NewManager() *Manager {
	return &Manager{}
}

// Target resolves the dot directory to operate on.
//
// Resolution order:
//  1. override, created if necessary
//  2. ./.stacks in the current working directory, if it exists
//  3. ~/.stacks, if it exists
//
// When none of the above resolve, Target returns an empty string and no
// error. Callers treat an empty target as "no persistent config".
func (m *Manager) Target(override string) (string, error) {
	if override != "" {
		if err := os.MkdirAll(override, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", override, err)
		}
		return override, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	local := filepath.Join(cwd, dirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeDir := filepath.Join(home, dirName)
	if info, err := os.Stat(homeDir); err == nil && info.IsDir() {
		return homeDir, nil
	}

	return "", nil
}

// Init creates ~/.stacks if it does not already exist and returns its path.
func (m *Manager) Init() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return dir, nil
}
