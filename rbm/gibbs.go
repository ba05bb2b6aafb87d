package rbm

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// LogProb evaluates LogProbNode numerically for every row of vis, using the
// current parameter values.
func (r *RBM) LogProb(vis *tensor.Dense) ([]float64, error) {
	v, err := r.asMat(vis)
	if err != nil {
		return nil, err
	}
	a := r.VisibleBias().Data().([]float64)
	b := r.HiddenBias().Data().([]float64)

	var pre mat.Dense
	pre.Mul(v, r.weightMat())

	rows, _ := v.Dims()
	retVal := make([]float64, rows)
	for i := range retVal {
		logp := floats.Dot(v.RawRowView(i), a)
		for j, x := range pre.RawRowView(i) {
			logp += softplus(x + b[j])
		}
		retVal[i] = logp
	}
	return retVal, nil
}

// Prob evaluates ProbNode numerically for every row of vis.
func (r *RBM) Prob(vis *tensor.Dense) ([]float64, error) {
	retVal, err := r.LogProb(vis)
	if err != nil {
		return nil, err
	}
	for i, lp := range retVal {
		retVal[i] = math.Exp(lp)
	}
	return retVal, nil
}

// Sample runs steps rounds of block Gibbs sampling, h ~ p(h|v) then v ~ p(v|h),
// starting one chain from every row of vis. The returned batch has the shape of vis
// and holds the state of each chain after the last round.
func (r *RBM) Sample(vis *tensor.Dense, steps int) (*tensor.Dense, error) {
	v, err := r.asMat(vis)
	if err != nil {
		return nil, err
	}
	w := r.weightMat()
	a := r.VisibleBias().Data().([]float64)
	b := r.HiddenBias().Data().([]float64)

	chain := mat.DenseCopyOf(v)
	var h mat.Dense
	for s := 0; s < steps; s++ {
		h.Mul(chain, w)
		r.bernoulli(&h, b)
		chain.Mul(&h, w.T())
		r.bernoulli(chain, a)
	}

	rows, cols := chain.Dims()
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(chain.RawMatrix().Data)), nil
}

// bernoulli replaces every pre-activation x in m with a draw from Bernoulli(σ(x + bias)).
func (r *RBM) bernoulli(m *mat.Dense, bias []float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			d := distuv.Bernoulli{P: sigmoid(row[j] + bias[j]), Src: r.src}
			row[j] = d.Rand()
		}
	}
}

func (r *RBM) weightMat() *mat.Dense {
	return mat.NewDense(r.Visible, r.Hidden, r.Weights().Data().([]float64))
}

func (r *RBM) asMat(vis *tensor.Dense) (*mat.Dense, error) {
	if r.weights == nil {
		return nil, errors.Errorf("RBM %q is not initialized", r.name)
	}
	shape := vis.Shape()
	if vis.Dims() != 2 || shape[1] != r.Visible || shape[0] == 0 {
		return nil, errors.Errorf("expected a (n, %d) visible batch. Got %v", r.Visible, shape)
	}
	data, ok := vis.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("expected a float64 visible batch. Got %v", vis.Dtype())
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
