package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/phobos/internal/fsutil"
	"github.com/banshee-data/phobos/internal/plot"
)

func (a *app) plotCmd() *cobra.Command {
	var (
		outDir        string
		start, stride int
		noHTML        bool
	)
	cmd := &cobra.Command{
		Use:   "plot <log>",
		Short: "Plot the logged bicycle states as PNG and HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				start = a.cfg.GetStartIndex()
			}
			if !cmd.Flags().Changed("stride") {
				stride = a.cfg.GetStride()
			}

			res, err := a.readLog(args[0])
			if err != nil {
				return err
			}
			tr, err := plot.FromSamples(res.Values(), start, stride, a.cfg.GetTickRate())
			if err != nil {
				return err
			}

			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			base := fsutil.SanitizeFilename(stem)
			title := stem
			if res.HasVersion {
				title = fmt.Sprintf("%s (firmware %s)", stem, res.Version)
			}
			if err := a.fs.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}

			out := cmd.OutOrStdout()
			width, height := a.cfg.GetPlotSize()
			pngPath := filepath.Join(outDir, base+".png")
			if err := plot.WritePNG(a.fs, pngPath, title, tr, plot.Size{Width: width, Height: height}); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", pngPath)

			if !noHTML {
				htmlPath := filepath.Join(outDir, base+".html")
				subtitle := fmt.Sprintf("%d messages, %d decode errors", len(res.Messages), res.Errors)
				if err := plot.WriteHTML(a.fs, htmlPath, title, subtitle, tr); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", htmlPath)
			}
			return nil
		},
	}
	a.addDecodeFlags(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().IntVar(&start, "start", 0, "Samples to skip (default from config)")
	cmd.Flags().IntVar(&stride, "stride", 0, "Plot every n-th sample (default from config)")
	cmd.Flags().BoolVar(&noHTML, "no-html", false, "Skip the interactive HTML chart")
	return cmd
}
