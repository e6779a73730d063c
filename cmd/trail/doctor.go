package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidahmann/trail/core/doctor"
	coreerrors "github.com/davidahmann/trail/core/errors"
)

func newDoctorCommand(app *cli) *cobra.Command {
	var jsonOutput bool
	command := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project files and telemetry settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := doctor.Run(doctor.Options{
				Root:            app.root,
				ProducerVersion: version,
				LookupEnv:       app.env.lookupEnv,
				Now:             app.env.now,
			})
			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if _, err := fmt.Fprint(cmd.OutOrStdout(), renderDoctor(result)); err != nil {
				return coreerrors.IOError("write doctor result", err)
			}
			if result.Failed() {
				return coreerrors.Wrap(errors.New("doctor checks failed"), coreerrors.CategoryInternalFailure, "doctor_failed", "apply the fix commands listed above", false)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return command
}

func renderDoctor(result doctor.Result) string {
	var builder strings.Builder
	builder.WriteString(result.Summary + "\n")
	for _, check := range result.Checks {
		fmt.Fprintf(&builder, "- %s: %s (%s)\n", check.Name, check.Status, check.Message)
		if check.FixCommand != "" {
			fmt.Fprintf(&builder, "  fix: %s\n", check.FixCommand)
		}
	}
	return builder.String()
}
