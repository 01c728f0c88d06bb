package plot

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/phobos/internal/fsutil"
	"github.com/banshee-data/phobos/internal/units"
)

var stateColors = [...]color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
}

// Size is a figure size in inches.
type Size struct {
	Width, Height float64
}

// statePanels builds the angle and angular rate panels of a trace, in degrees.
func statePanels(title string, tr StateTrace) ([][]*gplot.Plot, error) {
	angles := gplot.New()
	angles.Title.Text = title
	angles.Y.Label.Text = "angle (deg)"

	rates := gplot.New()
	rates.X.Label.Text = "time (s)"
	rates.Y.Label.Text = "rate (deg/s)"

	for i, label := range StateLabels {
		pts := make(plotter.XYs, tr.Len())
		for r, y := range units.Degrees(tr.Column(i)) {
			pts[r] = plotter.XY{X: tr.T[r], Y: y}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		line.Color = stateColors[i]
		line.Width = vg.Points(1)

		p := angles
		if i >= 2 {
			p = rates
		}
		p.Add(line)
		p.Legend.Add(label, line)
	}

	for _, p := range []*gplot.Plot{angles, rates} {
		p.Add(plotter.NewGrid())
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}
	return [][]*gplot.Plot{{angles}, {rates}}, nil
}

// WritePNG renders tr as a two panel PNG figure to path.
func WritePNG(fsys fsutil.FileSystem, path, title string, tr StateTrace, size Size) error {
	if tr.Len() == 0 {
		return ErrNoStates
	}
	panels, err := statePanels(title, tr)
	if err != nil {
		return err
	}

	img := vgimg.New(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter, PadTop: vg.Millimeter, PadBottom: vg.Millimeter}
	canvases := gplot.Align(panels, tiles, dc)
	for r := range panels {
		panels[r][0].Draw(canvases[r][0])
	}

	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write png: %w", err)
	}
	return w.Close()
}

func lineChart(title, subtitle, yName string, tr StateTrace, cols []int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
	)

	xs := make([]string, tr.Len())
	for i, t := range tr.T {
		xs[i] = fmt.Sprintf("%.3f", t)
	}
	line.SetXAxis(xs)
	for _, c := range cols {
		deg := units.Degrees(tr.Column(c))
		data := make([]opts.LineData, len(deg))
		for i, y := range deg {
			data[i] = opts.LineData{Value: y}
		}
		line.AddSeries(StateLabels[c], data)
	}
	return line
}

// RenderHTML renders tr as an interactive page with an angle chart and a
// rate chart.
func RenderHTML(title, subtitle string, tr StateTrace) ([]byte, error) {
	if tr.Len() == 0 {
		return nil, ErrNoStates
	}
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		lineChart(title, subtitle, "deg", tr, []int{0, 1}),
		lineChart("", "", "deg/s", tr, []int{2, 3}),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders tr with RenderHTML and writes it to path.
func WriteHTML(fsys fsutil.FileSystem, path, title, subtitle string, tr StateTrace) error {
	html, err := RenderHTML(title, subtitle, tr)
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
