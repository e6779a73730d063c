package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRepoRootContainsGoMod(t *testing.T) {
	root := RepoRoot(t)
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Fatalf("expected go.mod at repo root: %v", err)
	}
}

func TestWriteFileAndMustReadFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "output.json")
	WriteFile(t, target, []byte(`{"ok":true}`))
	got := MustReadFile(t, target)
	if string(got) != `{"ok":true}` {
		t.Fatalf("unexpected file content: %q", string(got))
	}
}

func TestFormatJSON(t *testing.T) {
	formatted := FormatJSON([]byte(`{"ok":true}`))
	if !strings.Contains(formatted, "\"ok\": true") {
		t.Fatalf("expected pretty-printed json, got=%q", formatted)
	}

	raw := "not-json"
	if got := FormatJSON([]byte(raw)); got != raw {
		t.Fatalf("expected raw passthrough for invalid json, got=%q", got)
	}
}

func TestNewProjectLayout(t *testing.T) {
	root := NewProject(t, `{"anonId":"abc1234"}`)
	head := MustReadFile(t, filepath.Join(root, ".git", "HEAD"))
	if strings.TrimSpace(string(head)) != "ref: refs/heads/main" {
		t.Fatalf("unexpected HEAD: %q", string(head))
	}
	ref := MustReadFile(t, filepath.Join(root, ".git", "refs", "heads", "main"))
	if strings.TrimSpace(string(ref)) != DefaultCommit {
		t.Fatalf("unexpected ref: %q", string(ref))
	}
	if !strings.Contains(string(MustReadFile(t, filepath.Join(root, "package.json"))), DefaultVersion) {
		t.Fatalf("manifest missing version")
	}
	if string(MustReadFile(t, filepath.Join(root, "config.json"))) != `{"anonId":"abc1234"}` {
		t.Fatalf("unexpected config")
	}
}

func TestNonEmptyLines(t *testing.T) {
	lines := NonEmptyLines([]byte("a\n\n b \n"))
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}
