package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	FileName         = "config.json"
	ManifestFileName = "package.json"
	GitDirName       = ".git"
	LogFileName      = "logs.json.txt"

	RootEnv = "TRAIL_ROOT"
)

// Paths locates the files a session reads and writes under one project root.
type Paths struct {
	Root     string
	Config   string
	Manifest string
	GitDir   string
	Log      string
}

func PathsFor(root string) Paths {
	cleanRoot := filepath.Clean(root)
	return Paths{
		Root:     cleanRoot,
		Config:   filepath.Join(cleanRoot, FileName),
		Manifest: filepath.Join(cleanRoot, ManifestFileName),
		GitDir:   filepath.Join(cleanRoot, GitDirName),
		Log:      filepath.Join(cleanRoot, LogFileName),
	}
}

// ResolveRoot picks the project root: the explicit flag value, then
// TRAIL_ROOT, then the working directory.
func ResolveRoot(flagValue string, lookupEnv func(string) (string, bool)) (string, error) {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return filepath.Abs(trimmed)
	}
	if lookupEnv != nil {
		if value, ok := lookupEnv(RootEnv); ok && strings.TrimSpace(value) != "" {
			return filepath.Abs(strings.TrimSpace(value))
		}
	}
	return os.Getwd()
}
