package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidahmann/trail/core/config"
	coreerrors "github.com/davidahmann/trail/core/errors"
)

type configOutput struct {
	Path             string   `json:"path"`
	AnonID           string   `json:"anonId"`
	ANSIDisabled     bool     `json:"ansiDisabled"`
	MetricsURL       string   `json:"metricsUrl"`
	MetricsOptOut    bool     `json:"metricsOptOut"`
	TelemetryEnabled bool     `json:"telemetryEnabled"`
	AutoOpenEnabled  bool     `json:"autoOpenEnabled"`
	Keys             []string `json:"keys"`
}

func newConfigCommand(app *cli) *cobra.Command {
	var jsonOutput bool
	command := &cobra.Command{
		Use:   "config",
		Short: "Ensure an anonId exists and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := app.loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), output)
			}
			if _, err := fmt.Fprint(cmd.OutOrStdout(), renderConfig(output)); err != nil {
				return coreerrors.IOError("write config", err)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return command
}

func (app *cli) loadConfig() (configOutput, error) {
	path := app.paths().Config
	document, err := config.Load(path, true)
	if err != nil {
		return configOutput{}, err
	}
	document, _, err = config.EnsureAnonID(path, document, config.DefaultAnonIDLength)
	if err != nil {
		return configOutput{}, err
	}
	settings := document.Settings(app.env.lookupEnv)
	return configOutput{
		Path:             path,
		AnonID:           settings.AnonID,
		ANSIDisabled:     settings.ANSIDisabled,
		MetricsURL:       settings.MetricsURL,
		MetricsOptOut:    settings.MetricsOptOut,
		TelemetryEnabled: settings.TelemetryEnabled,
		AutoOpenEnabled:  settings.AutoOpenEnabled,
		Keys:             document.Keys(),
	}, nil
}

func renderConfig(output configOutput) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "config: %s\n", output.Path)
	fmt.Fprintf(&builder, "anonId: %s\n", output.AnonID)
	fmt.Fprintf(&builder, "ansiDisabled: %t\n", output.ANSIDisabled)
	fmt.Fprintf(&builder, "metricsUrl: %s\n", output.MetricsURL)
	fmt.Fprintf(&builder, "metricsOptOut: %t\n", output.MetricsOptOut)
	fmt.Fprintf(&builder, "telemetryEnabled: %t\n", output.TelemetryEnabled)
	fmt.Fprintf(&builder, "autoOpenEnabled: %t\n", output.AutoOpenEnabled)
	return builder.String()
}
