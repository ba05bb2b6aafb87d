// Package chart renders training curves and reconstructed states with gonum/plot.
package chart

import (
	"math/bits"

	"github.com/gorgonia/tomograph"
	"github.com/gorgonia/tomograph/basis"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

// LossCurve collects the loss of every epoch it observes.
type LossCurve struct {
	Title  string
	points plotter.XYs
}

func NewLossCurve(title string) *LossCurve {
	return &LossCurve{Title: title}
}

// Callback returns the Callback to pass to tomograph.Fit.
func (c *LossCurve) Callback() tomograph.Callback {
	return func(l tomograph.EpochLog) {
		c.points = append(c.points, plotter.XY{X: float64(l.Epoch), Y: l.Loss})
	}
}

// Len is the number of epochs observed.
func (c *LossCurve) Len() int { return len(c.points) }

// Save renders the curve. The format follows the file extension.
func (c *LossCurve) Save(filename string) error {
	if len(c.points) == 0 {
		return errors.New("no epochs recorded")
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(c.points)
	if err != nil {
		return errors.Wrap(err, "unable to plot loss curve")
	}
	p.Add(line)
	return errors.Wrapf(p.Save(width, height, filename), "unable to save %q", filename)
}

// SaveState renders amplitude² of every basis state as a bar chart.
func SaveState(s tomograph.State, title, filename string) error {
	n := s.Len()
	if n == 0 {
		return errors.New("empty state")
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "probability"
	p.Y.Min, p.Y.Max = 0, 1

	bars, err := plotter.NewBarChart(plotter.Values(s.Probabilities()), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "unable to plot state")
	}
	p.Add(bars)

	dim := bits.Len(uint(n - 1))
	labels := make([]string, n)
	for i := range labels {
		labels[i] = basis.Label(i, dim)
	}
	p.NominalX(labels...)
	return errors.Wrapf(p.Save(width, height, filename), "unable to save %q", filename)
}
