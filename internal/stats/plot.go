package stats

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"nklandscape/internal/model"
)

// WriteFitnessPlot renders mean normalized fitness over time with its
// confidence band. The image format follows the file extension.
func WriteFitnessPlot(path string, statistics model.Statistics, confidence float64) error {
	steps := len(statistics.Mean)
	if steps == 0 {
		return fmt.Errorf("statistics are empty")
	}
	if len(statistics.LowerConf) != steps || len(statistics.UpperConf) != steps {
		return fmt.Errorf("statistics bounds do not match mean length %d", steps)
	}

	p := plot.New()
	p.Title.Text = "Fitness"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Normalized fitness"
	p.Y.Min = 0.5
	p.Y.Max = 1.1
	p.Add(plotter.NewGrid())

	mean := make(plotter.XYs, steps)
	band := make(plotter.XYs, 0, 2*steps)
	for i := 0; i < steps; i++ {
		mean[i].X = float64(i)
		mean[i].Y = statistics.Mean[i]
		band = append(band, plotter.XY{X: float64(i), Y: statistics.UpperConf[i]})
	}
	for i := steps - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: float64(i), Y: statistics.LowerConf[i]})
	}

	polygon, err := plotter.NewPolygon(band)
	if err != nil {
		return fmt.Errorf("confidence band: %w", err)
	}
	polygon.Color = color.RGBA{R: 31, G: 119, B: 180, A: 51}
	polygon.LineStyle.Width = 0

	line, err := plotter.NewLine(mean)
	if err != nil {
		return fmt.Errorf("mean line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	p.Add(polygon, line)
	p.Legend.Add("Mean normalized fitness", line)
	alpha := math.Round((1-confidence)*100) / 100
	p.Legend.Add(fmt.Sprintf("Confidence interval, α = %v", alpha), polygon)
	p.Legend.Top = false
	p.Legend.Left = false

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
