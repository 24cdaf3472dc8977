// Package workspace manages per-session directories: scaffolding,
// confined file access, listing, diffs, chat history, and project memory.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// excludeGlobs are paths omitted from listings: build artifacts,
// dependency trees, VCS internals, and OS metadata.
var excludeGlobs = []string{
	"node_modules/**",
	".git/**",
	"dist/**",
	".vite/**",
	"coverage/**",
	"**/.DS_Store",
	"chat_history.json",
	"metadata.json",
	"project_context.md",
	"uploads/**",
}

// excludeDirGlobs prune whole subtrees during the walk.
var excludeDirGlobs = []string{
	"**/node_modules",
	".git",
	"dist",
	".vite",
	"coverage",
	"uploads",
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store owns the workspace root and scaffolds session directories from
// a starter template on first use.
type Store struct {
	root        string
	templateDir string
}

// NewStore creates a store rooted at root. templateDir may be empty, in
// which case new sessions start with a bare directory.
func NewStore(root, templateDir string) *Store {
	return &Store{root: root, templateDir: templateDir}
}

// Root returns the workspace root directory.
func (s *Store) Root() string { return s.root }

// SessionDir returns the directory owned by a session without creating it.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// ValidSessionID reports whether the opaque ID is safe to use as a
// directory name.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Ensure creates the session directory on demand, copying the starter
// template on first creation. Returns the directory and whether it was
// newly created.
func (s *Store) Ensure(sessionID string) (string, bool, error) {
	if !ValidSessionID(sessionID) {
		return "", false, fmt.Errorf("invalid session id %q", sessionID)
	}
	dir := s.SessionDir(sessionID)
	if _, err := os.Stat(dir); err == nil {
		return dir, false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create session directory: %w", err)
	}
	if s.templateDir != "" {
		if err := copyTree(s.templateDir, dir); err != nil {
			return "", false, fmt.Errorf("failed to scaffold template: %w", err)
		}
	}
	slog.Info("Scaffolded session workspace", "session_id", sessionID, "dir", dir)
	return dir, true, nil
}

// SafePath joins rel under the session directory and rejects anything
// that escapes it. The resolved path always has the session directory
// as a prefix.
func (s *Store) SafePath(sessionID, rel string) (string, error) {
	if !ValidSessionID(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	base := s.SessionDir(sessionID)
	joined := filepath.Join(base, filepath.FromSlash(rel))
	resolved := filepath.Clean(joined)
	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes session directory", rel)
	}
	return resolved, nil
}

// ReadFile reads a workspace file. Returns "" and false when absent.
func (s *Store) ReadFile(sessionID, rel string) (string, bool, error) {
	path, err := s.SafePath(sessionID, rel)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), true, nil
}

// WriteFile writes content, creating parent directories as needed.
// Returns the prior content (empty if the file is new) for diffing.
func (s *Store) WriteFile(sessionID, rel, content string) (string, error) {
	path, err := s.SafePath(sessionID, rel)
	if err != nil {
		return "", err
	}
	prior := ""
	if data, readErr := os.ReadFile(path); readErr == nil {
		prior = string(data)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return prior, nil
}

// WriteBytes writes binary content (generated images).
func (s *Store) WriteBytes(sessionID, rel string, data []byte) error {
	path, err := s.SafePath(sessionID, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// DeleteFile removes a workspace file. Deleting a missing file is not
// an error.
func (s *Store) DeleteFile(sessionID, rel string) error {
	path, err := s.SafePath(sessionID, rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	return nil
}

// Exists reports whether a workspace path exists.
func (s *Store) Exists(sessionID, rel string) bool {
	path, err := s.SafePath(sessionID, rel)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// ListFiles returns the session's files as sorted slash-separated
// relative paths, excluding build artifacts and bookkeeping files.
func (s *Store) ListFiles(sessionID string) ([]string, error) {
	dir := s.SessionDir(sessionID)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if excludedDir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if excluded(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// SaveUpload stores an attachment under uploads/<timestamp>-<name> and
// returns the relative path.
func (s *Store) SaveUpload(sessionID, name string, data []byte) (string, error) {
	safe := filepath.Base(name)
	if safe == "." || safe == string(filepath.Separator) || safe == "" {
		safe = "upload"
	}
	rel := fmt.Sprintf("uploads/%d-%s", time.Now().UnixMilli(), safe)
	if err := s.WriteBytes(sessionID, rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// Remove deletes the whole session directory (explicit teardown only).
func (s *Store) Remove(sessionID string) error {
	if !ValidSessionID(sessionID) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	return os.RemoveAll(s.SessionDir(sessionID))
}

func excluded(rel string) bool {
	for _, glob := range excludeGlobs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

func excludedDir(rel string) bool {
	for _, glob := range excludeDirGlobs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		defer in.Close()
		if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
			return mkErr
		}
		out, createErr := os.Create(target)
		if createErr != nil {
			return createErr
		}
		defer out.Close()
		_, copyErr := io.Copy(out, in)
		return copyErr
	})
}
