package preflight

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// InstalledPackages reads the workspace's package manifest and returns
// the set of dependency roots (regular and dev). A missing manifest
// yields an empty set.
func InstalledPackages(sessionDir string) (map[string]bool, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, "package.json"))
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json: %w", err)
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}

	installed := make(map[string]bool, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name := range manifest.Dependencies {
		installed[name] = true
	}
	for name := range manifest.DevDependencies {
		installed[name] = true
	}
	return installed, nil
}
