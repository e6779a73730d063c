// Package config reads and writes the per-installation config.json document.
//
// The core only ever writes anonId. Every other key is an external input and
// is preserved byte-for-byte when the document is written back.
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	coreerrors "github.com/davidahmann/trail/core/errors"
	"github.com/davidahmann/trail/core/fsx"
	"github.com/davidahmann/trail/core/schema/v1/trail"
	"github.com/davidahmann/trail/core/schema/validate"
)

const (
	DefaultAnonIDLength = 7

	MetricsURLEnv     = "TRAIL_METRICS_URL"
	DisableMetricsEnv = "TRAIL_DISABLE_METRICS"
	NoColorEnv        = "NO_COLOR"
)

// Document is a loaded config.json. The typed fields mirror the known keys;
// raw keeps every key seen on disk so unknown ones survive a rewrite.
type Document struct {
	trail.ConfigDocument
	raw map[string]json.RawMessage
}

// Settings is the effective configuration after environment overrides.
type Settings struct {
	AnonID           string
	ANSIDisabled     bool
	MetricsURL       string
	MetricsOptOut    bool
	TelemetryEnabled bool
	AutoOpenEnabled  bool
}

func Load(path string, allowMissing bool) (Document, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Document{}, coreerrors.Wrap(fmt.Errorf("config path is required"), coreerrors.CategoryInvalidInput, "config_path_required", "pass --root or set TRAIL_ROOT", false)
	}

	// #nosec G304 -- config path is derived from the explicit project root.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Document{raw: map[string]json.RawMessage{}}, nil
		}
		return Document{}, coreerrors.IOError("read config", err)
	}
	return Parse(content)
}

// Parse decodes config content. Empty content is an empty document.
func Parse(content []byte) (Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return Document{raw: map[string]json.RawMessage{}}, nil
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(content, &raw); err != nil {
		return Document{}, coreerrors.ParseError("config", err)
	}
	if err := validate.ValidateConfigDocument(content); err != nil {
		return Document{}, coreerrors.ParseError("config", err)
	}
	var typed trail.ConfigDocument
	if err := json.Unmarshal(content, &typed); err != nil {
		return Document{}, coreerrors.ParseError("config", err)
	}
	typed.AnonID = strings.TrimSpace(typed.AnonID)
	typed.MetricsURL = strings.TrimSpace(typed.MetricsURL)
	return Document{ConfigDocument: typed, raw: raw}, nil
}

// EnsureAnonID returns the document's anonId, generating and persisting a new
// one when it is absent. The write completes before EnsureAnonID returns.
func EnsureAnonID(path string, document Document, length int) (Document, string, error) {
	if document.AnonID != "" {
		return document, document.AnonID, nil
	}
	anonID, err := GenerateAnonID(length)
	if err != nil {
		return document, "", err
	}
	updated := document.clone()
	updated.AnonID = anonID
	encodedID, err := json.Marshal(anonID)
	if err != nil {
		return document, "", coreerrors.Wrap(fmt.Errorf("encode anonId: %w", err), coreerrors.CategoryInternalFailure, "anon_id_encode", "", false)
	}
	updated.raw["anonId"] = encodedID
	if err := Save(path, updated); err != nil {
		return document, "", err
	}
	return updated, anonID, nil
}

func Save(path string, document Document) error {
	raw := document.raw
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	encoded, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("encode config: %w", err), coreerrors.CategoryInternalFailure, "config_encode", "", false)
	}
	encoded = append(encoded, '\n')
	if err := fsx.WriteFileAtomic(path, encoded, 0o600); err != nil {
		return coreerrors.IOError("write config", err)
	}
	return nil
}

// GenerateAnonID returns length lowercase hex characters from crypto/rand.
func GenerateAnonID(length int) (string, error) {
	if length <= 0 {
		length = DefaultAnonIDLength
	}
	buffer := make([]byte, (length+1)/2)
	if _, err := rand.Read(buffer); err != nil {
		return "", coreerrors.Wrap(fmt.Errorf("generate anonId: %w", err), coreerrors.CategoryInternalFailure, "anon_id_entropy", "", false)
	}
	return hex.EncodeToString(buffer)[:length], nil
}

// Settings applies environment overrides to the document.
func (document Document) Settings(lookupEnv func(string) (string, bool)) Settings {
	settings := Settings{
		AnonID:          document.AnonID,
		ANSIDisabled:    document.ANSIDisabled,
		MetricsURL:      document.MetricsURL,
		MetricsOptOut:   document.DisableAnonymisedMetricsLogging,
		AutoOpenEnabled: !document.DisableAutoFileLineOpen,
	}
	if lookupEnv == nil {
		lookupEnv = func(string) (string, bool) { return "", false }
	}
	if value, ok := lookupEnv(MetricsURLEnv); ok {
		settings.MetricsURL = strings.TrimSpace(value)
	}
	if value, ok := lookupEnv(DisableMetricsEnv); ok && strings.TrimSpace(value) == "1" {
		settings.MetricsOptOut = true
	}
	if value, ok := lookupEnv(NoColorEnv); ok && value != "" {
		settings.ANSIDisabled = true
	}
	settings.TelemetryEnabled = !settings.MetricsOptOut && settings.MetricsURL != ""
	return settings
}

// Keys lists every key present in the document, known or not.
func (document Document) Keys() []string {
	keys := make([]string, 0, len(document.raw))
	for key := range document.raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (document Document) clone() Document {
	raw := make(map[string]json.RawMessage, len(document.raw)+1)
	for key, value := range document.raw {
		raw[key] = value
	}
	return Document{ConfigDocument: document.ConfigDocument, raw: raw}
}
