package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/capture"
	"github.com/banshee-data/phobos/internal/config"
	"github.com/banshee-data/phobos/internal/fsutil"
	"github.com/banshee-data/phobos/internal/monitoring"
	"github.com/banshee-data/phobos/internal/phlog"
	"github.com/banshee-data/phobos/internal/schema"
	"github.com/banshee-data/phobos/internal/timeutil"
)

// app carries what the subcommands share. Tests swap the filesystem, clock
// and serial opener.
type app struct {
	cfgPath  string
	logLevel string

	// decode flags shared by several commands; zero values defer to config
	format  string
	workers int

	cfg       *config.Config
	fs        fsutil.FileSystem
	clock     timeutil.Clock
	openPort  capture.Opener
	logCloser io.Closer
}

func newApp() *app {
	return &app{
		cfg:      &config.Config{},
		fs:       fsutil.OSFileSystem{},
		clock:    timeutil.RealClock{},
		openPort: capture.OpenSerial,
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "phobos",
		Short:        "Decode and inspect bicycle firmware telemetry logs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "Config file path (.json or .toml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level, overrides the config file")

	cmd.AddCommand(
		a.decodeCmd(),
		a.exportCmd(),
		a.simulateCmd(),
		a.plotCmd(),
		a.captureCmd(),
		a.synthCmd(),
		versionCmd(),
	)
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadOrDefault(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logOpts := cfg.LogOptions()
	if a.logLevel != "" {
		logOpts.Level = a.logLevel
	}
	closer, err := monitoring.Configure(logOpts)
	if err != nil {
		return err
	}
	a.logCloser = closer
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

func (a *app) addDecodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.format, "format", "f", "",
		fmt.Sprintf("Log format: %s (default from config)", strings.Join(schema.FormatNames(), ", ")))
	cmd.Flags().IntVarP(&a.workers, "workers", "w", 0, "Decode workers (default from config)")
}

func (a *app) formatName() string {
	if a.format != "" {
		return a.format
	}
	return a.cfg.GetFormat()
}

func (a *app) decodeOptions() []phlog.Option {
	workers := a.workers
	if workers == 0 {
		workers = a.cfg.GetWorkers()
	}
	return []phlog.Option{phlog.WithWorkers(workers)}
}

// readLog decodes path in the selected format.
func (a *app) readLog(path string) (*phlog.Result[schema.Sample], error) {
	format, err := schema.LookupFormat(a.formatName())
	if err != nil {
		return nil, err
	}
	start := a.clock.Now()
	res, err := phlog.ReadFile(a.fs, path, format, a.decodeOptions()...)
	if err != nil {
		return nil, err
	}
	monitoring.WithFields(map[string]interface{}{
		"log":      filepath.Base(path),
		"format":   res.Format,
		"messages": len(res.Messages),
		"errors":   res.Errors,
		"elapsed":  a.clock.Since(start).String(),
	}).Debug("decoded log")
	return res, nil
}
