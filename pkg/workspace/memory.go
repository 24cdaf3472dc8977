package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MemoryFilename is the per-session project memory file.
const MemoryFilename = "project_context.md"

// Canonical memory section headings.
const (
	SectionArchitecture = "Architecture"
	SectionComponents   = "Components"
	SectionFileTree     = "File Tree"
	SectionRecentWork   = "Recent Work"
)

// Memory is a per-session Markdown document with "## Heading" sections,
// safely appended and updated across turns and serialized into prompts.
type Memory struct {
	dir string
}

// NewMemory binds memory to a session directory.
func NewMemory(sessionDir string) *Memory {
	return &Memory{dir: sessionDir}
}

func (m *Memory) path() string {
	return filepath.Join(m.dir, MemoryFilename)
}

// Read returns the full memory document, "" when absent.
func (m *Memory) Read() string {
	data, err := os.ReadFile(m.path())
	if err != nil {
		return ""
	}
	return string(data)
}

// Section returns the body of a named "## Heading" section, "" when absent.
func (m *Memory) Section(name string) string {
	sections := parseSections(m.Read())
	return sections[name]
}

// UpdateSection replaces the named section's body, appending the section
// if it does not exist yet. The write is atomic (temp file + rename).
func (m *Memory) UpdateSection(name, body string) error {
	content := m.Read()
	sections := parseSections(content)
	order := sectionOrder(content)

	if _, ok := sections[name]; !ok {
		order = append(order, name)
	}
	sections[name] = strings.TrimSpace(body)

	var b strings.Builder
	b.WriteString("# Project Context\n")
	for _, heading := range order {
		b.WriteString("\n## " + heading + "\n\n")
		b.WriteString(sections[heading])
		b.WriteString("\n")
	}
	return atomicWrite(m.path(), []byte(b.String()))
}

// Serialize renders memory for prompt inclusion, "" when empty.
func (m *Memory) Serialize() string {
	content := strings.TrimSpace(m.Read())
	if content == "" {
		return ""
	}
	return content
}

// parseSections splits a memory document into heading → body.
func parseSections(content string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body []string
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = nil
	}
	for _, line := range strings.Split(content, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = strings.TrimSpace(heading)
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

// sectionOrder preserves heading order for rewrites.
func sectionOrder(content string) []string {
	var order []string
	for _, line := range strings.Split(content, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			order = append(order, strings.TrimSpace(heading))
		}
	}
	return order
}

// atomicWrite writes via a temp file and rename so a crashed turn never
// leaves a truncated document.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".memory-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
