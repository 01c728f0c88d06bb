package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/synth"
)

func (a *app) synthCmd() *cobra.Command {
	var (
		o    = synth.Defaults()
		out  string
		roll float64
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic log from a simulated ride of the benchmark bicycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if !cmd.Flags().Changed("tick-hz") {
				o.TickHz = a.cfg.GetTickRate()
			}
			o.X0 = []float64{roll, 0, 0, 0}

			raw, st, err := synth.Generate(o)
			if err != nil {
				return err
			}
			if err := a.fs.WriteFile(out, raw, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d records, %d corrupt frames, %d bytes\n",
				out, st.Records, st.Corrupt, st.Bytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Log file to write")
	cmd.Flags().StringVarP(&o.Format, "format", "f", o.Format, "Log format to write")
	cmd.Flags().StringVar(&o.GitSHA, "sha", o.GitSHA, "Firmware git SHA for the header, 7 hex characters")
	cmd.Flags().IntVarP(&o.Count, "count", "n", o.Count, "Records after the header")
	cmd.Flags().Float64Var(&o.Speed, "speed", o.Speed, "Forward speed in m/s")
	cmd.Flags().Float64Var(&o.Dt, "dt", o.Dt, "Sample period in s")
	cmd.Flags().Float64Var(&o.TickHz, "tick-hz", o.TickHz, "Firmware tick rate for timestamps (default from config)")
	cmd.Flags().Float64Var(&roll, "roll", o.X0[0], "Initial roll angle in rad")
	cmd.Flags().IntVar(&o.CorruptEvery, "corrupt-every", 0, "Insert a corrupt frame after every n-th record")
	return cmd
}
