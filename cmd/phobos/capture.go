package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/capture"
	"github.com/banshee-data/phobos/internal/monitoring"
)

func (a *app) captureCmd() *cobra.Command {
	var (
		port  string
		out   string
		limit int64
		baud  int
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record the firmware's serial output to a log file until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if port == "" {
				port = a.cfg.GetSerialPort()
			}
			opts := a.cfg.PortOptions()
			if cmd.Flags().Changed("baud") {
				opts.BaudRate = baud
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sp, err := a.openPort(port, opts)
			if err != nil {
				return err
			}
			w, err := a.fs.Create(out)
			if err != nil {
				sp.Close()
				return fmt.Errorf("failed to create %s: %w", out, err)
			}

			monitoring.Logf("capturing %s to %s", port, out)
			start := a.clock.Now()
			st, err := capture.Capture(ctx, sp, w, limit)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "captured %d bytes (%d frame delimiters) to %s in %s\n",
				st.Bytes, st.Delimiters, out, a.clock.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Serial device (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Log file to write")
	cmd.Flags().Int64Var(&limit, "limit", 0, "Stop after this many bytes, 0 for no limit")
	cmd.Flags().IntVar(&baud, "baud", 0, "Baud rate (default from config)")
	return cmd
}
