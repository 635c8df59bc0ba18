// Package viz renders learning curves and attention
// alignment heat maps as PNG files.
package viz

import (
	"github.com/unixpickle/essentials"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// A Point is one checkpoint's metrics on a learning curve.
type Point struct {
	Checkpoint int
	TrainLoss  float64
	DevLoss    float64
	DevBLEU    float64
}

// LearningCurve writes a line plot of train loss, dev loss
// and dev BLEU per checkpoint to path. The BLEU line shares
// the axis; its 0-100 scale dominates early, losses take
// over as they shrink.
func LearningCurve(path string, points []Point) error {
	p := plot.New()
	p.Title.Text = "Training progress"
	p.X.Label.Text = "Checkpoint"
	p.Y.Label.Text = "Average loss / BLEU"

	train := make(plotter.XYs, len(points))
	dev := make(plotter.XYs, len(points))
	bleu := make(plotter.XYs, len(points))
	for i, pt := range points {
		train[i] = plotter.XY{X: float64(pt.Checkpoint), Y: pt.TrainLoss}
		dev[i] = plotter.XY{X: float64(pt.Checkpoint), Y: pt.DevLoss}
		bleu[i] = plotter.XY{X: float64(pt.Checkpoint), Y: pt.DevBLEU}
	}

	trainLine, err := plotter.NewLine(train)
	if err != nil {
		return essentials.AddCtx("plot learning curve", err)
	}
	devLine, err := plotter.NewLine(dev)
	if err != nil {
		return essentials.AddCtx("plot learning curve", err)
	}
	devLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	bleuLine, err := plotter.NewLine(bleu)
	if err != nil {
		return essentials.AddCtx("plot learning curve", err)
	}
	bleuLine.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}

	p.Add(trainLine, devLine, bleuLine)
	p.Legend.Add("train loss", trainLine)
	p.Legend.Add("dev loss", devLine)
	p.Legend.Add("dev BLEU", bleuLine)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return essentials.AddCtx("plot learning curve", err)
	}
	return nil
}

// attentionGrid adapts an attention weight matrix, indexed
// [outputStep][inputPosition], to the plotter grid
// interface.
type attentionGrid struct {
	weights [][]float64
}

func (a attentionGrid) Dims() (int, int) {
	if len(a.weights) == 0 {
		return 0, 0
	}
	return len(a.weights[0]), len(a.weights)
}

func (a attentionGrid) Z(c, r int) float64 { return a.weights[r][c] }
func (a attentionGrid) X(c int) float64    { return float64(c) }
func (a attentionGrid) Y(r int) float64    { return float64(r) }

// AttentionMap writes a heat map of the attention weights
// for a single decoded sequence to path. weights is indexed
// [outputStep][inputPosition]; inTokens and outTokens label
// the axes.
func AttentionMap(path string, weights [][]float64, inTokens, outTokens []string) error {
	p := plot.New()
	p.Title.Text = "Attention alignment"
	p.X.Label.Text = "Input"
	p.Y.Label.Text = "Output"

	heat := plotter.NewHeatMap(attentionGrid{weights: weights}, palette.Heat(12, 1))
	p.Add(heat)

	p.NominalX(inTokens...)
	p.NominalY(outTokens...)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return essentials.AddCtx("plot attention map", err)
	}
	return nil
}
