package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	coreerrors "github.com/davidahmann/trail/core/errors"
)

var anonIDPattern = regexp.MustCompile(`^[0-9a-f]{7}$`)

func TestLoadAllowMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	document, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load allow missing: %v", err)
	}
	if document.AnonID != "" || len(document.Keys()) != 0 {
		t.Fatalf("expected empty document, got %#v", document)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	_, err := Load(path, false)
	if err == nil {
		t.Fatal("expected missing config error")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryIOFailure {
		t.Fatalf("expected io_failure, got %q (%v)", coreerrors.CategoryOf(err), err)
	}
}

func TestLoadEmptyFileIsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	document, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if document.AnonID != "" {
		t.Fatalf("expected no anonId, got %q", document.AnonID)
	}
}

func TestLoadRejectsMalformedContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid_json", content: `{"anonId":`},
		{name: "wrong_type", content: `{"ansiDisabled":"yes"}`},
		{name: "not_object", content: `[1,2]`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(test.content), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := Load(path, false)
			if err == nil {
				t.Fatalf("expected parse error")
			}
			if coreerrors.CategoryOf(err) != coreerrors.CategoryParseFailure {
				t.Fatalf("expected parse_failure, got %q (%v)", coreerrors.CategoryOf(err), err)
			}
		})
	}
}

func TestEnsureAnonIDPersistsAndIsReused(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := []byte(`{"ansiDisabled":true,"custom":{"nested":[1,2]}}`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	document, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	updated, anonID, err := EnsureAnonID(path, document, DefaultAnonIDLength)
	if err != nil {
		t.Fatalf("EnsureAnonID: %v", err)
	}
	if !anonIDPattern.MatchString(anonID) {
		t.Fatalf("unexpected anonId %q", anonID)
	}
	if updated.AnonID != anonID {
		t.Fatalf("document not updated: %q", updated.AnonID)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if onDisk["anonId"] != anonID {
		t.Fatalf("anonId not persisted: %v", onDisk["anonId"])
	}
	if onDisk["ansiDisabled"] != true {
		t.Fatalf("ansiDisabled lost: %v", onDisk)
	}
	if _, ok := onDisk["custom"]; !ok {
		t.Fatalf("unknown key lost: %v", onDisk)
	}

	reloaded, err := Load(path, false)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	_, again, err := EnsureAnonID(path, reloaded, DefaultAnonIDLength)
	if err != nil {
		t.Fatalf("EnsureAnonID again: %v", err)
	}
	if again != anonID {
		t.Fatalf("expected reuse of %q, got %q", anonID, again)
	}
}

func TestEnsureAnonIDDoesNotWriteWhenPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	document, err := Parse([]byte(`{"anonId":"abcdef1"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, anonID, err := EnsureAnonID(path, document, DefaultAnonIDLength)
	if err != nil {
		t.Fatalf("EnsureAnonID: %v", err)
	}
	if anonID != "abcdef1" {
		t.Fatalf("unexpected anonId %q", anonID)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no config write, stat err=%v", err)
	}
}

func TestGenerateAnonIDLengths(t *testing.T) {
	for _, length := range []int{1, 2, 7, 8, 16} {
		anonID, err := GenerateAnonID(length)
		if err != nil {
			t.Fatalf("GenerateAnonID(%d): %v", length, err)
		}
		if len(anonID) != length {
			t.Fatalf("expected length %d, got %q", length, anonID)
		}
		if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(anonID) {
			t.Fatalf("expected lowercase hex, got %q", anonID)
		}
	}
}

func TestSettingsAppliesEnvironment(t *testing.T) {
	document, err := Parse([]byte(`{"anonId":"abc1234","metricsUrl":"https://metrics.example.test","disableAutoFileLineOpen":true}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	settings := document.Settings(nil)
	if !settings.TelemetryEnabled || settings.AutoOpenEnabled || settings.ANSIDisabled {
		t.Fatalf("unexpected settings: %#v", settings)
	}

	env := map[string]string{
		DisableMetricsEnv: "1",
		NoColorEnv:        "1",
	}
	settings = document.Settings(func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	if settings.TelemetryEnabled || !settings.ANSIDisabled {
		t.Fatalf("expected env overrides, got %#v", settings)
	}

	empty, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if empty.Settings(nil).TelemetryEnabled {
		t.Fatalf("telemetry must be off without a metrics url")
	}
	overridden := empty.Settings(func(key string) (string, bool) {
		if key == MetricsURLEnv {
			return "http://127.0.0.1:9/ingest", true
		}
		return "", false
	})
	if !overridden.TelemetryEnabled || overridden.MetricsURL != "http://127.0.0.1:9/ingest" {
		t.Fatalf("expected metrics url override, got %#v", overridden)
	}
}

func TestPathsForAndResolveRoot(t *testing.T) {
	root := t.TempDir()
	paths := PathsFor(root)
	if paths.Config != filepath.Join(root, FileName) || paths.Log != filepath.Join(root, LogFileName) {
		t.Fatalf("unexpected paths: %#v", paths)
	}
	if paths.GitDir != filepath.Join(root, GitDirName) || paths.Manifest != filepath.Join(root, ManifestFileName) {
		t.Fatalf("unexpected paths: %#v", paths)
	}

	resolved, err := ResolveRoot(root, nil)
	if err != nil || resolved != root {
		t.Fatalf("ResolveRoot flag: %q %v", resolved, err)
	}
	fromEnv, err := ResolveRoot(" ", func(key string) (string, bool) {
		if key == RootEnv {
			return root, true
		}
		return "", false
	})
	if err != nil || fromEnv != root {
		t.Fatalf("ResolveRoot env: %q %v", fromEnv, err)
	}
}
