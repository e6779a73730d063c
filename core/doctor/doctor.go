package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/davidahmann/trail/core/config"
	"github.com/davidahmann/trail/core/eventlog"
	"github.com/davidahmann/trail/core/schema/validate"
	"github.com/davidahmann/trail/core/telemetry"
	"github.com/davidahmann/trail/core/version"
)

const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"

	editorCommand = "code"
)

type Options struct {
	Root            string
	ProducerVersion string
	LookupEnv       func(string) (string, bool)
	LookPath        func(string) (string, error)
	Now             func() time.Time
}

type Result struct {
	SchemaID        string   `json:"schema_id"`
	SchemaVersion   string   `json:"schema_version"`
	CreatedAt       string   `json:"created_at"`
	ProducerVersion string   `json:"producer_version"`
	Status          string   `json:"status"`
	NonFixable      bool     `json:"non_fixable"`
	Summary         string   `json:"summary"`
	FixCommands     []string `json:"fix_commands"`
	Checks          []Check  `json:"checks"`
}

type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	FixCommand string `json:"fix_command,omitempty"`
	NonFixable bool   `json:"non_fixable,omitempty"`
}

func Run(opts Options) Result {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = "."
	}
	producerVersion := strings.TrimSpace(opts.ProducerVersion)
	if producerVersion == "" {
		producerVersion = "0.0.0-dev"
	}
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	paths := config.PathsFor(root)

	document, configCheck := checkConfig(paths)
	settings := document.Settings(lookupEnv)
	checks := []Check{
		checkRootWritable(paths.Root),
		configCheck,
		checkVersionStamp(paths),
		checkEventLog(paths),
		checkTelemetry(settings),
		checkEditor(settings, lookPath),
	}

	failed := 0
	warned := 0
	nonFixable := false
	fixCommands := make([]string, 0, len(checks))
	seenFixes := map[string]struct{}{}
	for _, check := range checks {
		switch check.Status {
		case statusFail:
			failed++
		case statusWarn:
			warned++
		}
		if check.NonFixable {
			nonFixable = true
		}
		if check.FixCommand != "" {
			if _, ok := seenFixes[check.FixCommand]; !ok {
				seenFixes[check.FixCommand] = struct{}{}
				fixCommands = append(fixCommands, check.FixCommand)
			}
		}
	}

	status := statusPass
	if failed > 0 {
		status = statusFail
	} else if warned > 0 {
		status = statusWarn
	}

	sort.Strings(fixCommands)
	summary := fmt.Sprintf("doctor: status=%s failed=%d warned=%d non_fixable=%t", status, failed, warned, nonFixable)

	return Result{
		SchemaID:        "trail.doctor.result",
		SchemaVersion:   "1.0.0",
		CreatedAt:       now().UTC().Format(time.RFC3339Nano),
		ProducerVersion: producerVersion,
		Status:          status,
		NonFixable:      nonFixable,
		Summary:         summary,
		FixCommands:     fixCommands,
		Checks:          checks,
	}
}

// Failed reports whether any check failed.
func (result Result) Failed() bool {
	return result.Status == statusFail
}

func checkRootWritable(root string) Check {
	info, err := os.Stat(root)
	if err != nil {
		return Check{
			Name:    "project_root",
			Status:  statusFail,
			Message: fmt.Sprintf("project root not accessible: %v", err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "project_root",
			Status:  statusFail,
			Message: "project root is not a directory",
		}
	}
	testPath := filepath.Join(root, ".trail-doctor-writecheck")
	if err := os.WriteFile(testPath, []byte("ok"), 0o600); err != nil {
		return Check{
			Name:       "project_root",
			Status:     statusFail,
			Message:    fmt.Sprintf("project root not writable: %v", err),
			FixCommand: fmt.Sprintf("chmod u+w %s", shellQuote(root)),
		}
	}
	_ = os.Remove(testPath)
	return Check{
		Name:    "project_root",
		Status:  statusPass,
		Message: "project root is writable",
	}
}

func checkConfig(paths config.Paths) (config.Document, Check) {
	document, err := config.Load(paths.Config, false)
	if err != nil {
		if _, statErr := os.Stat(paths.Config); os.IsNotExist(statErr) {
			empty, _ := config.Parse(nil)
			return empty, Check{
				Name:    "config",
				Status:  statusWarn,
				Message: "config.json does not exist; it is created on the first recorded step",
			}
		}
		empty, _ := config.Parse(nil)
		return empty, Check{
			Name:       "config",
			Status:     statusFail,
			Message:    fmt.Sprintf("config.json is invalid: %v", err),
			FixCommand: fmt.Sprintf("cp %s %s.bak && echo '{}' > %s", shellQuote(paths.Config), shellQuote(paths.Config), shellQuote(paths.Config)),
		}
	}
	if document.AnonID == "" {
		return document, Check{
			Name:    "config",
			Status:  statusPass,
			Message: "config.json is valid; anonId is generated on the first recorded step",
		}
	}
	return document, Check{
		Name:    "config",
		Status:  statusPass,
		Message: fmt.Sprintf("config.json is valid (anonId %s)", document.AnonID),
	}
}

func checkVersionStamp(paths config.Paths) Check {
	stamp, err := version.NewResolver(paths.Manifest, paths.GitDir).Resolve()
	if err != nil {
		return Check{
			Name:       "version_stamp",
			Status:     statusFail,
			Message:    fmt.Sprintf("version stamp unavailable: %v", err),
			FixCommand: "run from a git checkout whose package.json has a semver version",
		}
	}
	return Check{
		Name:    "version_stamp",
		Status:  statusPass,
		Message: fmt.Sprintf("version stamp %s", stamp),
	}
}

func checkEventLog(paths config.Paths) Check {
	// #nosec G304 -- log path is derived from the explicit project root.
	content, err := os.ReadFile(paths.Log)
	if err != nil && !os.IsNotExist(err) {
		return Check{
			Name:    "event_log",
			Status:  statusFail,
			Message: fmt.Sprintf("event log unreadable: %v", err),
		}
	}
	if err := validate.ValidateEventLog(content); err != nil {
		return Check{
			Name:       "event_log",
			Status:     statusFail,
			Message:    fmt.Sprintf("event log has invalid lines: %v", err),
			FixCommand: fmt.Sprintf("mv %s %s.bak", shellQuote(paths.Log), shellQuote(paths.Log)),
		}
	}
	events, err := eventlog.New(paths.Log).LoadAll()
	if err != nil {
		return Check{
			Name:       "event_log",
			Status:     statusFail,
			Message:    fmt.Sprintf("event log unreadable: %v", err),
			FixCommand: fmt.Sprintf("mv %s %s.bak", shellQuote(paths.Log), shellQuote(paths.Log)),
		}
	}
	return Check{
		Name:    "event_log",
		Status:  statusPass,
		Message: fmt.Sprintf("event log readable (%d events in the latest run)", len(events)),
	}
}

func checkTelemetry(settings config.Settings) Check {
	if settings.MetricsOptOut {
		return Check{
			Name:    "telemetry",
			Status:  statusPass,
			Message: "anonymised metrics are disabled",
		}
	}
	if settings.MetricsURL == "" {
		return Check{
			Name:    "telemetry",
			Status:  statusWarn,
			Message: "metricsUrl is not set; telemetry is off",
		}
	}
	if _, err := telemetry.NewHTTPSink(settings.MetricsURL); err != nil {
		return Check{
			Name:       "telemetry",
			Status:     statusFail,
			Message:    err.Error(),
			FixCommand: "set metricsUrl in config.json to an absolute http(s) url",
		}
	}
	return Check{
		Name:    "telemetry",
		Status:  statusPass,
		Message: fmt.Sprintf("telemetry posts to %s", settings.MetricsURL),
	}
}

func checkEditor(settings config.Settings, lookPath func(string) (string, error)) Check {
	if !settings.AutoOpenEnabled {
		return Check{
			Name:    "editor",
			Status:  statusPass,
			Message: "auto open of source locations is disabled",
		}
	}
	if _, err := lookPath(editorCommand); err != nil {
		return Check{
			Name:       "editor",
			Status:     statusWarn,
			Message:    fmt.Sprintf("%s is not on PATH; source locations will not open", editorCommand),
			FixCommand: `set "disableAutoFileLineOpen": true in config.json`,
		}
	}
	return Check{
		Name:    "editor",
		Status:  statusPass,
		Message: fmt.Sprintf("%s is available for auto open", editorCommand),
	}
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
