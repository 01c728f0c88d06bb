package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the phobos version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "phobos %s (git %s, built %s)\n",
				version.Version, version.GitSHA, version.BuildTime)
		},
	}
}
