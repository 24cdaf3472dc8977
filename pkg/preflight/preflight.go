// Package preflight statically checks generated source for unresolved
// imports before it is written: relative specifiers are probed against
// the workspace and the plan's upcoming paths, bare specifiers against
// the installed-package set.
package preflight

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Extension probe order for relative specifiers. A specifier is
// satisfied if any candidate exists (spec as-is, spec.ext, spec/index.ext).
var probeExtensions = []string{
	"ts", "tsx", "js", "jsx",
	"css", "scss", "sass", "less",
	"svg", "png", "jpg", "jpeg", "gif", "webp",
	"json",
}

var (
	staticImportRe  = regexp.MustCompile(`(?m)^\s*(?:import|export)\s+[^'";]*?from\s+['"]([^'"]+)['"]`)
	sideEffectRe    = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"]+)['"]`)
	dynamicImportRe = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
)

// Check is the result of one preflight run.
type Check struct {
	MissingPackages []string // bare specifiers not in the installed set
	MissingImports  []string // relative specifiers with no candidate
}

// OK reports whether every specifier resolved.
func (c *Check) OK() bool {
	return len(c.MissingPackages) == 0 && len(c.MissingImports) == 0
}

// Checker resolves specifiers for one session.
type Checker struct {
	SessionDir   string
	Installed    map[string]bool // package roots from the workspace manifest
	PlannedPaths map[string]bool // paths the plan is about to create
}

// Run extracts every import specifier from source (as written to
// filePath) and classifies it. Absolute paths and URLs are ignored.
func (c *Checker) Run(filePath, source string) *Check {
	check := &Check{}
	seen := make(map[string]bool)

	for _, spec := range ExtractSpecifiers(source) {
		if seen[spec] {
			continue
		}
		seen[spec] = true

		switch {
		case strings.HasPrefix(spec, "."):
			if !c.relativeSatisfied(filePath, spec) {
				check.MissingImports = append(check.MissingImports, spec)
			}
		case strings.HasPrefix(spec, "/"),
			strings.HasPrefix(spec, "http://"),
			strings.HasPrefix(spec, "https://"),
			strings.HasPrefix(spec, "data:"):
			// Absolute and URL specifiers are outside preflight's scope.
		default:
			if !c.Installed[PackageRoot(spec)] {
				check.MissingPackages = append(check.MissingPackages, spec)
			}
		}
	}

	sort.Strings(check.MissingPackages)
	sort.Strings(check.MissingImports)
	return check
}

// ExtractSpecifiers returns every import specifier in source: static
// import/export-from, side-effect imports, and dynamic import(...).
func ExtractSpecifiers(source string) []string {
	var specs []string
	for _, re := range []*regexp.Regexp{staticImportRe, sideEffectRe, dynamicImportRe} {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			specs = append(specs, m[1])
		}
	}
	return specs
}

// PackageRoot returns the installable root of a bare specifier:
// "@scope/name/sub" → "@scope/name", "lodash/merge" → "lodash".
func PackageRoot(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// relativeSatisfied probes the extension table for a resolvable target,
// on disk or among the plan's upcoming paths.
func (c *Checker) relativeSatisfied(fromFile, spec string) bool {
	resolved := path.Clean(path.Join(path.Dir(fromFile), spec))
	for _, candidate := range Candidates(resolved) {
		if c.PlannedPaths[candidate] {
			return true
		}
		if c.SessionDir != "" {
			if _, err := os.Stat(filepath.Join(c.SessionDir, filepath.FromSlash(candidate))); err == nil {
				return true
			}
		}
	}
	return false
}

// Candidates expands a resolved relative target into every path that
// would satisfy it.
func Candidates(resolved string) []string {
	out := []string{resolved}
	if path.Ext(resolved) != "" {
		return out
	}
	for _, ext := range probeExtensions {
		out = append(out, resolved+"."+ext)
	}
	for _, ext := range probeExtensions {
		out = append(out, resolved+"/index."+ext)
	}
	return out
}

// FeedbackPrompt renders a regeneration prompt fragment naming what
// failed preflight.
func FeedbackPrompt(check *Check) string {
	var b strings.Builder
	b.WriteString("The previous code failed import validation.\n")
	if len(check.MissingPackages) > 0 {
		fmt.Fprintf(&b, "These packages are NOT installed — do not import them: %s.\n",
			strings.Join(check.MissingPackages, ", "))
	}
	if len(check.MissingImports) > 0 {
		fmt.Fprintf(&b, "These relative imports do not resolve to any file — remove or correct them: %s.\n",
			strings.Join(check.MissingImports, ", "))
	}
	b.WriteString("Regenerate the file using only installed packages and existing files.")
	return b.String()
}
