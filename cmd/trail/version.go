package main

import (
	"fmt"

	"github.com/spf13/cobra"

	coreerrors "github.com/davidahmann/trail/core/errors"
	coreversion "github.com/davidahmann/trail/core/version"
)

type versionOutput struct {
	CLIVersion   string `json:"cli_version"`
	VersionStamp string `json:"version_stamp"`
}

func newVersionCommand(app *cli) *cobra.Command {
	var jsonOutput bool
	command := &cobra.Command{
		Use:   "version",
		Short: "Print the project's version stamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := app.paths()
			stamp, err := coreversion.NewResolver(paths.Manifest, paths.GitDir).Resolve()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), versionOutput{CLIVersion: version, VersionStamp: stamp})
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), stamp); err != nil {
				return coreerrors.IOError("write version", err)
			}
			return nil
		},
	}
	command.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return command
}
