package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	DefaultCommit  = "3f9a2c17d4e8b6a0c5f1e2d3b4a5968778695a4b"
	DefaultVersion = "0.4.1"
)

func RepoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path) // #nosec G304 -- test helper for controlled paths.
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

// WriteManifest writes a package.json carrying the given version.
func WriteManifest(t *testing.T, root, version string) {
	t.Helper()
	content := fmt.Sprintf("{\n  \"name\": \"trail-tutorial\",\n  \"version\": %q,\n  \"scripts\": {\n    \"1-fund\": \"node ./scripts/1-fund.js\"\n  }\n}\n", version)
	WriteFile(t, filepath.Join(root, "package.json"), []byte(content))
}

// WriteGitCheckout fakes the parts of a .git directory that HEAD resolution
// reads: HEAD pointing at branch and a loose ref holding commit.
func WriteGitCheckout(t *testing.T, root, branch, commit string) {
	t.Helper()
	gitDir := filepath.Join(root, ".git")
	WriteFile(t, filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/"+branch+"\n"))
	WriteFile(t, filepath.Join(gitDir, "refs", "heads", filepath.FromSlash(branch)), []byte(commit+"\n"))
}

// NewProject returns a temp project root with a manifest, a main-branch git
// checkout and the given config.json content (skipped when empty).
func NewProject(t *testing.T, configContent string) string {
	t.Helper()
	root := t.TempDir()
	WriteManifest(t, root, DefaultVersion)
	WriteGitCheckout(t, root, "main", DefaultCommit)
	if configContent != "" {
		WriteFile(t, filepath.Join(root, "config.json"), []byte(configContent))
	}
	return root
}

func FormatJSON(raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw)
	}
	encoded, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return string(raw)
	}
	return fmt.Sprintf("%s\n", string(encoded))
}

// NonEmptyLines splits raw file content into lines, dropping blanks.
func NonEmptyLines(raw []byte) []string {
	lines := make([]string, 0)
	for _, line := range bytes.Split(raw, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		lines = append(lines, string(trimmed))
	}
	return lines
}
