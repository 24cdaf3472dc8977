package verify

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// themeFiles are probed in order for the session's design-token palette.
var themeFiles = []string{
	"src/theme.ts",
	"src/theme.css",
	"src/styles/theme.ts",
	"src/styles/theme.css",
	"src/index.css",
}

// Hex literals exempt from palette enforcement: pure black/white and
// their short forms show up in shadows and resets everywhere.
var exemptHex = map[string]bool{
	"#fff": true, "#ffffff": true,
	"#000": true, "#000000": true,
}

var hexLiteral = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// DesignFinding flags one off-palette hardcoded color.
type DesignFinding struct {
	Filepath string
	Hex      string
}

func (f DesignFinding) String() string {
	return fmt.Sprintf("%s uses %s which is not in the theme palette", f.Filepath, f.Hex)
}

// ScanDesignConsistency reads the theme file's hex palette and flags
// hardcoded hex literals elsewhere that are neither in the palette nor
// exempt. No theme file means no findings.
func ScanDesignConsistency(sessionDir string, files []string) []DesignFinding {
	palette, themePath := loadPalette(sessionDir)
	if palette == nil {
		return nil
	}

	var findings []DesignFinding
	for _, rel := range files {
		if rel == themePath {
			continue
		}
		ext := path.Ext(rel)
		if !sourceExtensions[ext] && ext != ".css" && ext != ".scss" && ext != ".less" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(sessionDir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		seen := make(map[string]bool)
		for _, hex := range hexLiteral.FindAllString(string(data), -1) {
			hex = strings.ToLower(hex)
			if palette[hex] || exemptHex[hex] || seen[hex] {
				continue
			}
			seen[hex] = true
			findings = append(findings, DesignFinding{Filepath: rel, Hex: hex})
		}
	}
	return findings
}

func loadPalette(sessionDir string) (map[string]bool, string) {
	for _, rel := range themeFiles {
		data, err := os.ReadFile(filepath.Join(sessionDir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		palette := make(map[string]bool)
		for _, hex := range hexLiteral.FindAllString(string(data), -1) {
			palette[strings.ToLower(hex)] = true
		}
		if len(palette) > 0 {
			return palette, rel
		}
	}
	return nil, ""
}
