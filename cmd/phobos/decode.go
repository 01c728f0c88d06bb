package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) decodeCmd() *cobra.Command {
	var showFailures bool
	cmd := &cobra.Command{
		Use:   "decode <log>",
		Short: "Decode a captured log and report the firmware version and message counts",
		Long: `Decode a captured log and report the firmware version and message counts.

Corrupt frames are skipped and counted; a partially decodable log is not an
error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.readLog(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Summary())
			if showFailures {
				if res.HeaderErr != nil {
					fmt.Fprintln(out, res.HeaderErr)
				}
				for _, f := range res.Failures {
					fmt.Fprintf(out, "frame %d at byte %d: %v\n", f.Index, f.Offset, f.Err)
				}
			}
			return nil
		},
	}
	a.addDecodeFlags(cmd)
	cmd.Flags().BoolVar(&showFailures, "failures", false, "List every dropped frame")
	return cmd
}
