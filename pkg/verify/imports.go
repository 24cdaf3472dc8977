package verify

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/appforge/forge/pkg/preflight"
)

// sourceExtensions are the files the missing-import scanner reads.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
}

// missingImportRe parses the scanner's own error format back apart.
var missingImportRe = regexp.MustCompile(`^(.+?): cannot resolve import '(.+?)' \(expected at (.+?)\)$`)

// ScanMissingImports walks the listed source files and reports relative
// imports that resolve to nothing on disk. This catches asset imports
// (.css, .svg, images) that the type-checker cannot see.
func ScanMissingImports(sessionDir string, files []string) ([]string, error) {
	var errors []string
	for _, rel := range files {
		if !sourceExtensions[path.Ext(rel)] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(sessionDir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		for _, spec := range preflight.ExtractSpecifiers(string(data)) {
			if !strings.HasPrefix(spec, ".") {
				continue
			}
			resolved := path.Clean(path.Join(path.Dir(rel), spec))
			if resolvedExists(sessionDir, resolved) {
				continue
			}
			errors = append(errors,
				fmt.Sprintf("%s: cannot resolve import '%s' (expected at %s)", rel, spec, primaryCandidate(resolved)))
		}
	}
	return errors, nil
}

// ParseMissingImport splits a scanner error back into its parts.
// Returns ok=false for strings the scanner did not produce.
func ParseMissingImport(errLine string) (fromFile, specifier, expectedPath string, ok bool) {
	if m := missingImportRe.FindStringSubmatch(errLine); m != nil {
		return m[1], m[2], m[3], true
	}
	return "", "", "", false
}

func resolvedExists(sessionDir, resolved string) bool {
	for _, candidate := range preflight.Candidates(resolved) {
		if _, err := os.Stat(filepath.Join(sessionDir, filepath.FromSlash(candidate))); err == nil {
			return true
		}
	}
	return false
}

// primaryCandidate is where a synthesized placeholder should land: the
// specifier itself when it names an extension, otherwise the first
// source-extension probe.
func primaryCandidate(resolved string) string {
	if path.Ext(resolved) != "" {
		return resolved
	}
	return resolved + ".tsx"
}
