package tomograph

import (
	"math"

	"github.com/gorgonia/tomograph/rbm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

type maebe struct {
	err error
}

func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// init builds the training graph for a batch of measurements.
func (t *Tomograph) init(batch int) error {
	t.reset()
	t.g = G.NewGraph()
	amplitude, phase, err := t.fwd()
	if err != nil {
		return err
	}
	return t.bwd(amplitude, phase, batch)
}

// fwd builds the predicted state on the visible rows:
//
//	amplitude = sqrt(p / Σp)     = sqrt(softmax(log p))
//	phase     = log(q + eps) / 2 = (log q + softplus(log eps - log q)) / 2
//
// Working from log p and log q keeps both finite for large free energies.
func (t *Tomograph) fwd() (amplitude, phase *G.Node, err error) {
	t.vis = G.NewMatrix(t.g, rbm.Float, G.WithShape(t.rows(), t.VisSize), G.WithName("Visible"))

	var m maebe
	logp := m.do(func() (*G.Node, error) { return t.Amplitude.LogProbNode(t.vis) })
	amplitude = m.do(func() (*G.Node, error) { return G.SoftMax(logp, 0) })
	amplitude = m.do(func() (*G.Node, error) { return G.Sqrt(amplitude) })

	logq := m.do(func() (*G.Node, error) { return t.Phase.LogProbNode(t.vis) })
	gap := m.do(func() (*G.Node, error) { return G.Neg(logq) })
	gap = m.do(func() (*G.Node, error) { return G.Add(gap, G.NewConstant(math.Log(t.Eps))) })
	gap = m.do(func() (*G.Node, error) { return G.Softplus(gap) })
	phase = m.do(func() (*G.Node, error) { return G.Add(logq, gap) })
	phase = m.do(func() (*G.Node, error) { return G.Mul(phase, G.NewConstant(0.5)) })
	if m.err != nil {
		return nil, nil, m.err
	}
	return amplitude, phase, nil
}

// bwd builds the negative log-likelihood and its gradients.
//
// With data D·e^{iΦ} and prediction a·e^{iφ} the per-measurement overlap is
//
//	Σ_k D_k a_k e^{i(Φ_k - φ_k)} = (Re·u + Im·w) + i(Im·u - Re·w)
//
// where Re = D cos Φ, Im = D sin Φ, u = a cos φ and w = a sin φ. The data side is
// bound as inputs so that only matrix-vector products touch the batch.
func (t *Tomograph) bwd(amplitude, phase *G.Node, batch int) error {
	t.dataRe = G.NewMatrix(t.g, rbm.Float, G.WithShape(batch, t.rows()), G.WithName("DataRe"))
	t.dataIm = G.NewMatrix(t.g, rbm.Float, G.WithShape(batch, t.rows()), G.WithName("DataIm"))

	var m maebe
	cos := m.do(func() (*G.Node, error) { return G.Cos(phase) })
	sin := m.do(func() (*G.Node, error) { return G.Sin(phase) })
	u := m.do(func() (*G.Node, error) { return G.HadamardProd(amplitude, cos) })
	w := m.do(func() (*G.Node, error) { return G.HadamardProd(amplitude, sin) })

	reU := m.do(func() (*G.Node, error) { return G.Mul(t.dataRe, u) })
	imW := m.do(func() (*G.Node, error) { return G.Mul(t.dataIm, w) })
	imU := m.do(func() (*G.Node, error) { return G.Mul(t.dataIm, u) })
	reW := m.do(func() (*G.Node, error) { return G.Mul(t.dataRe, w) })
	re := m.do(func() (*G.Node, error) { return G.Add(reU, imW) })
	im := m.do(func() (*G.Node, error) { return G.Sub(imU, reW) })

	re2 := m.do(func() (*G.Node, error) { return G.Square(re) })
	im2 := m.do(func() (*G.Node, error) { return G.Square(im) })
	likelihood := m.do(func() (*G.Node, error) { return G.Add(re2, im2) })

	cost := m.do(func() (*G.Node, error) { return G.Add(likelihood, G.NewConstant(t.Eps)) })
	cost = m.do(func() (*G.Node, error) { return G.Log(cost) })
	cost = m.do(func() (*G.Node, error) { return G.Mean(cost) })
	cost = m.do(func() (*G.Node, error) { return G.Neg(cost) })
	if m.err != nil {
		return m.err
	}
	G.Read(cost, &t.cost)

	if _, err := G.Grad(cost, t.Model()...); err != nil {
		return errors.Wrapf(err, "unable to differentiate the likelihood")
	}
	return nil
}

func (t *Tomograph) reset() {
	t.g = nil
	t.vis = nil
	t.dataRe = nil
	t.dataIm = nil
	t.cost = nil
}
