package hermite

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Data is a batch of measurements projected onto a set of Fock states.
// Both tensors are shaped (measurements, states); column j belongs to the j-th
// requested basis index.
type Data struct {
	Amplitude *tensor.Dense
	Phase     *tensor.Dense
}

// Encode computes <n|x, θ> for every measurement (x[i], theta[i]) and every n in indices.
//
//	amplitude[i, j] = H_n(x_i) exp(-x_i²/2) / sqrt(2ⁿ n!) / π^¼
//	phase[i, j]     = θ_i n
//
// The amplitudes come from Wavefunctions, which stays finite for every n. Forming
// H_n(x) on its own overflows float64 from n ≈ 280.
func Encode(indices []int, x, theta []float64) (*Data, error) {
	if len(x) != len(theta) {
		return nil, errors.Errorf("got %d x quadratures but %d phases", len(x), len(theta))
	}
	if len(x) == 0 || len(indices) == 0 {
		return nil, errors.Errorf("cannot encode %d measurements onto %d states", len(x), len(indices))
	}

	maxDeg := 0
	for _, n := range indices {
		if n < 0 {
			return nil, errors.Errorf("negative Fock index %d", n)
		}
		if n > maxDeg {
			maxDeg = n
		}
	}

	cols := len(indices)
	amplitude := make([]float64, len(x)*cols)
	phase := make([]float64, len(x)*cols)

	psi := make([]float64, maxDeg+1)
	for i, xi := range x {
		psi = Wavefunctions(xi, psi)
		for j, n := range indices {
			amplitude[i*cols+j] = psi[n]
			phase[i*cols+j] = theta[i] * float64(n)
		}
	}

	return &Data{
		Amplitude: tensor.New(tensor.WithShape(len(x), cols), tensor.WithBacking(amplitude)),
		Phase:     tensor.New(tensor.WithShape(len(x), cols), tensor.WithBacking(phase)),
	}, nil
}

// Rows is the number of measurements.
func (d *Data) Rows() int { return d.Amplitude.Shape()[0] }

// Cols is the number of basis states.
func (d *Data) Cols() int { return d.Amplitude.Shape()[1] }

// Gather returns a copy of d restricted to the given columns, in the given order.
// Columns may repeat, as happens when several Gibbs chains land on the same state.
func (d *Data) Gather(cols []int) (*Data, error) {
	amp, err := native.MatrixF64(d.Amplitude)
	if err != nil {
		return nil, errors.Wrapf(err, "Gather failed - amplitude")
	}
	phase, err := native.MatrixF64(d.Phase)
	if err != nil {
		return nil, errors.Wrapf(err, "Gather failed - phase")
	}
	for _, c := range cols {
		if c < 0 || c >= d.Cols() {
			return nil, errors.Errorf("column %d out of range [0, %d)", c, d.Cols())
		}
	}

	rows := len(amp)
	ampBacking := make([]float64, rows*len(cols))
	phaseBacking := make([]float64, rows*len(cols))
	for i := range amp {
		for j, c := range cols {
			ampBacking[i*len(cols)+j] = amp[i][c]
			phaseBacking[i*len(cols)+j] = phase[i][c]
		}
	}
	return &Data{
		Amplitude: tensor.New(tensor.WithShape(rows, len(cols)), tensor.WithBacking(ampBacking)),
		Phase:     tensor.New(tensor.WithShape(rows, len(cols)), tensor.WithBacking(phaseBacking)),
	}, nil
}

// Cartesian returns the data in rectangular form: amplitude·cos(phase) and amplitude·sin(phase).
func (d *Data) Cartesian() (re, im *tensor.Dense) {
	amp := d.Amplitude.Data().([]float64)
	phase := d.Phase.Data().([]float64)
	reBacking := make([]float64, len(amp))
	imBacking := make([]float64, len(amp))
	for i, a := range amp {
		s, c := math.Sincos(phase[i])
		reBacking[i] = a * c
		imBacking[i] = a * s
	}
	shape := d.Amplitude.Shape().Clone()
	re = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(reBacking))
	im = tensor.New(tensor.WithShape(shape...), tensor.WithBacking(imBacking))
	return re, im
}
