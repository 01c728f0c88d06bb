package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/phlog"
	"github.com/banshee-data/phobos/internal/plot"
	"github.com/banshee-data/phobos/internal/schema"
	"github.com/banshee-data/phobos/internal/units"
	"github.com/banshee-data/phobos/internal/whipple"
)

const (
	benchmarkSpeed = 5.0
	benchmarkDt    = 0.005
)

type simulateFlags struct {
	speed     float64
	dt        float64
	duration  time.Duration
	roll      float64
	steer     float64
	out       string
	speedUnit string
}

func (a *app) simulateCmd() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate [log]",
		Short: "Run the linear Whipple bicycle model",
		Long: `Run the linear Whipple bicycle model.

Without a log the benchmark bicycle is released from the given roll and steer
angles. With a simulation log the logged model parameters are used, the
simulator starts from the first plotted state, and the result is compared
with the logged states.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !units.IsValidSpeed(f.speedUnit) {
				return fmt.Errorf("invalid speed unit %q (valid: %v)", f.speedUnit, units.ValidSpeedUnits)
			}
			if len(args) == 0 {
				return a.simulateBenchmark(cmd.OutOrStdout(), cmd, f)
			}
			return a.simulateLog(cmd.OutOrStdout(), cmd, args[0], f)
		},
	}
	cmd.Flags().IntVarP(&a.workers, "workers", "w", 0, "Decode workers (default from config)")
	cmd.Flags().Float64Var(&f.speed, "speed", 0, "Forward speed in m/s (default from config or log)")
	cmd.Flags().Float64Var(&f.dt, "dt", 0, "Sample period in s (default from config or log)")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "Simulated time (default from config)")
	cmd.Flags().Float64Var(&f.roll, "roll", 0.1, "Initial roll angle in rad, without a log")
	cmd.Flags().Float64Var(&f.steer, "steer", 0, "Initial steer angle in rad, without a log")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write a PNG of the simulated states to this path")
	cmd.Flags().StringVar(&f.speedUnit, "speed-unit", units.MPS, fmt.Sprintf("Unit for reported speeds: %v", units.ValidSpeedUnits))
	return cmd
}

// simParams resolves speed and period: flag, then config, then fallback.
func (a *app) simParams(cmd *cobra.Command, f simulateFlags, v, dt float64) (float64, float64, time.Duration) {
	if s, ok := a.cfg.GetSimSpeed(); ok {
		v = s
	}
	if cmd.Flags().Changed("speed") {
		v = f.speed
	}
	if d, ok := a.cfg.GetSimDt(); ok {
		dt = d
	}
	if cmd.Flags().Changed("dt") {
		dt = f.dt
	}
	duration := a.cfg.GetSimDuration()
	if cmd.Flags().Changed("duration") {
		duration = f.duration
	}
	return v, dt, duration
}

func steps(duration time.Duration, dt float64) (int, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("sample period must be positive, got %g", dt)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", duration)
	}
	return int(math.Round(duration.Seconds() / dt)), nil
}

func reportModel(w io.Writer, m whipple.Model, v float64, unit string) error {
	eig, err := m.Eigenvalues(v)
	if err != nil {
		return err
	}
	stable, err := m.Stable(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "speed %s, stable: %t\n", units.FormatSpeed(v, unit), stable)
	fmt.Fprint(w, "eigenvalues:")
	for _, e := range eig {
		fmt.Fprintf(w, " %.4f%+.4fi", real(e), imag(e))
	}
	fmt.Fprintln(w)
	return nil
}

func reportState(w io.Writer, label string, x []float64) {
	deg := units.Degrees(x)
	fmt.Fprintf(w, "%s:", label)
	for i, name := range plot.StateLabels {
		fmt.Fprintf(w, " %s %.3f", name, deg[i])
	}
	fmt.Fprintln(w)
}

func (a *app) simulateBenchmark(w io.Writer, cmd *cobra.Command, f simulateFlags) error {
	m := whipple.Benchmark()
	v, dt, duration := a.simParams(cmd, f, benchmarkSpeed, benchmarkDt)
	n, err := steps(duration, dt)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "model: benchmark bicycle")
	if err := reportModel(w, m, v, f.speedUnit); err != nil {
		return err
	}
	states, err := whipple.Simulate(m, v, []float64{f.roll, f.steer, 0, 0}, dt, n)
	if err != nil {
		return err
	}
	reportState(w, "initial (deg)", states[0])
	reportState(w, fmt.Sprintf("after %s (deg)", duration), states[len(states)-1])

	if f.out != "" {
		width, height := a.cfg.GetPlotSize()
		title := fmt.Sprintf("benchmark bicycle at %s", units.FormatSpeed(v, f.speedUnit))
		if err := plot.WritePNG(a.fs, f.out, title, plot.FromSimulation(states, dt), plot.Size{Width: width, Height: height}); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", f.out)
	}
	return nil
}

func (a *app) simulateLog(w io.Writer, cmd *cobra.Command, path string, f simulateFlags) error {
	res, err := phlog.ReadFile(a.fs, path, schema.SimulationFormat(), a.decodeOptions()...)
	if err != nil {
		return err
	}
	if res.HeaderRecord == nil || res.HeaderRecord.Model == nil {
		return errors.New("log has no model parameters in its first message")
	}
	logged := res.HeaderRecord.Model
	m, err := whipple.FromSchema(logged)
	if err != nil {
		return err
	}
	v, dt, duration := a.simParams(cmd, f, float64(logged.V), float64(logged.Dt))
	n, err := steps(duration, dt)
	if err != nil {
		return err
	}

	samples := make([]schema.Sample, len(res.Messages))
	for i, msg := range res.Messages {
		samples[i] = msg.Value.Sample()
	}
	measured, err := plot.FromSamples(samples, a.cfg.GetStartIndex(), 1, a.cfg.GetTickRate())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "model: logged by firmware %s\n", res.Version)
	if err := reportModel(w, m, v, f.speedUnit); err != nil {
		return err
	}
	states, err := whipple.Simulate(m, v, measured.States[0], dt, n)
	if err != nil {
		return err
	}
	simulated := plot.FromSimulation(states, dt)
	reportState(w, "initial (deg)", states[0])
	reportState(w, fmt.Sprintf("after %s (deg)", duration), states[len(states)-1])

	rms, err := plot.RMS(simulated, measured.Until(duration.Seconds()))
	if err != nil {
		return err
	}
	reportState(w, "rms error (deg)", rms[:])

	if f.out != "" {
		width, height := a.cfg.GetPlotSize()
		title := fmt.Sprintf("simulated from firmware %s", res.Version)
		if err := plot.WritePNG(a.fs, f.out, title, simulated, plot.Size{Width: width, Height: height}); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %s\n", f.out)
	}
	return nil
}
