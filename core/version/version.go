// Package version builds the stamp attached to every event:
// "{version}-{hash7}" on the primary branch, "{version}-{hash7}-{branch}"
// elsewhere.
package version

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	goversion "github.com/hashicorp/go-version"

	coreerrors "github.com/davidahmann/trail/core/errors"
)

const (
	DefaultPrimaryBranch = "main"
	hashLength           = 7
	detachedBranch       = "detached"
	headRefPrefix        = "ref: refs/heads/"
)

// Resolver computes the stamp once; later calls return the cached value.
type Resolver struct {
	ManifestPath  string
	GitDir        string
	PrimaryBranch string

	once  sync.Once
	stamp string
	err   error
}

func NewResolver(manifestPath, gitDir string) *Resolver {
	return &Resolver{
		ManifestPath:  manifestPath,
		GitDir:        gitDir,
		PrimaryBranch: DefaultPrimaryBranch,
	}
}

func (resolver *Resolver) Resolve() (string, error) {
	resolver.once.Do(func() {
		resolver.stamp, resolver.err = resolver.resolve()
	})
	return resolver.stamp, resolver.err
}

func (resolver *Resolver) resolve() (string, error) {
	manifestVersion, err := ReadManifestVersion(resolver.ManifestPath)
	if err != nil {
		return "", err
	}
	branch, commit, err := ReadHead(resolver.GitDir)
	if err != nil {
		return "", err
	}
	primary := resolver.PrimaryBranch
	if primary == "" {
		primary = DefaultPrimaryBranch
	}
	return Format(manifestVersion, commit, branch, primary), nil
}

// Format assembles a stamp. An empty branch means a detached HEAD.
func Format(manifestVersion, commit, branch, primaryBranch string) string {
	shortCommit := commit
	if len(shortCommit) > hashLength {
		shortCommit = shortCommit[:hashLength]
	}
	if branch == primaryBranch && branch != "" {
		return fmt.Sprintf("%s-%s", manifestVersion, shortCommit)
	}
	if branch == "" {
		branch = detachedBranch
	}
	return fmt.Sprintf("%s-%s-%s", manifestVersion, shortCommit, SanitizeBranch(branch))
}

// SanitizeBranch replaces every character outside [A-Za-z0-9] with '_'.
func SanitizeBranch(branch string) string {
	var builder strings.Builder
	builder.Grow(len(branch))
	for _, r := range branch {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
			continue
		}
		builder.WriteByte('_')
	}
	return builder.String()
}

type manifest struct {
	Version string `yaml:"version"`
}

// ReadManifestVersion reads the version field from package.json. YAML
// manifests are accepted too since JSON is a YAML subset.
func ReadManifestVersion(path string) (string, error) {
	// #nosec G304 -- manifest path is derived from the explicit project root.
	content, err := os.ReadFile(path)
	if err != nil {
		return "", coreerrors.IOError("read manifest", err)
	}
	var parsed manifest
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return "", coreerrors.ParseError("manifest", err)
	}
	trimmed := strings.TrimSpace(parsed.Version)
	if trimmed == "" {
		return "", coreerrors.ParseError("manifest", fmt.Errorf("version field is missing"))
	}
	if _, err := goversion.NewSemver(trimmed); err != nil {
		return "", coreerrors.ParseError("manifest version", err)
	}
	return trimmed, nil
}

// ReadHead returns the checked-out branch and its commit. Loose refs win over
// packed-refs. A detached HEAD returns an empty branch.
func ReadHead(gitDir string) (string, string, error) {
	// #nosec G304 -- git dir is derived from the explicit project root.
	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", "", coreerrors.IOError("read git HEAD", err)
	}
	trimmedHead := strings.TrimSpace(string(head))
	if !strings.HasPrefix(trimmedHead, headRefPrefix) {
		if !isCommitHash(trimmedHead) {
			return "", "", coreerrors.ParseError("git HEAD", fmt.Errorf("unexpected content %q", trimmedHead))
		}
		return "", trimmedHead, nil
	}
	branch := strings.TrimPrefix(trimmedHead, headRefPrefix)
	commit, err := readRef(gitDir, "refs/heads/"+branch)
	if err != nil {
		return "", "", err
	}
	return branch, commit, nil
}

func readRef(gitDir, ref string) (string, error) {
	// #nosec G304 -- ref name comes from HEAD inside the project git dir.
	loose, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref)))
	if err == nil {
		commit := strings.TrimSpace(string(loose))
		if !isCommitHash(commit) {
			return "", coreerrors.ParseError("git ref "+ref, fmt.Errorf("unexpected content %q", commit))
		}
		return commit, nil
	}
	if !os.IsNotExist(err) {
		return "", coreerrors.IOError("read git ref "+ref, err)
	}

	// #nosec G304 -- packed-refs lives inside the project git dir.
	packed, packedErr := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if packedErr != nil {
		return "", coreerrors.IOError("read git ref "+ref, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(packed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		commit, name, ok := strings.Cut(line, " ")
		if ok && name == ref && isCommitHash(commit) {
			return commit, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", coreerrors.IOError("read packed-refs", err)
	}
	return "", coreerrors.IOError("read git ref "+ref, os.ErrNotExist)
}

func isCommitHash(value string) bool {
	if len(value) < hashLength {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
