package tomograph

import (
	"github.com/gorgonia/tomograph/basis"
	"github.com/gorgonia/tomograph/hermite"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// session is the mutable state of one Fit call. It is threaded through every epoch.
type session struct {
	vis    *tensor.Dense // persistent chains
	m      G.VM
	solver G.Solver
	model  []G.ValueGrad
}

// Fit trains both machines on the quadrature measurements (x[i], theta[i]) for exactly
// epochs iterations of Adam (β1 = 0.9, β2 = 0.99) at a fixed learning rate.
//
// The measurements are encoded onto the full basis once. Every epoch the chains are
// advanced (see Forward), the encoded data is restricted to the states they landed on,
// and one gradient step is taken on the negative log-likelihood. Each callback receives
// the epoch's loss.
func (t *Tomograph) Fit(x, theta []float64, epochs int, lr float64, callbacks ...Callback) error {
	data, err := hermite.Encode(basis.Range(1<<uint(t.VisSize)), x, theta)
	if err != nil {
		return errors.WithMessage(err, "unable to encode measurements")
	}
	if err = t.init(data.Rows()); err != nil {
		return errors.WithMessage(err, "unable to build training graph")
	}

	// In enumeration mode these chains are never read: advance replaces them with the
	// full basis on the first epoch.
	s := session{
		vis:    t.initialChains(),
		m:      G.NewTapeMachine(t.g, G.BindDualValues(t.Model()...)),
		solver: G.NewAdamSolver(G.WithLearnRate(lr), G.WithBeta1(0.9), G.WithBeta2(0.99)),
		model:  G.NodesToValueGrads(t.Model()),
	}
	defer s.m.Close()

	t.Logger.Info("fitting", "measurements", data.Rows(), "states", data.Cols(), "epochs", epochs, "lr", lr, "gibbs", t.Gibbs)
	var l EpochLog
	for e := 0; e < epochs; e++ {
		if s, l, err = t.epoch(s, data, e, epochs); err != nil {
			return err
		}
		for _, cb := range callbacks {
			cb(l)
		}
	}
	t.Logger.Info("fit done", "epochs", epochs, "loss", l.Loss)
	return nil
}

func (t *Tomograph) epoch(s session, data *hermite.Data, e, epochs int) (session, EpochLog, error) {
	var err error
	if s.vis, err = t.advance(s.vis); err != nil {
		return s, EpochLog{}, errors.WithMessagef(err, "epoch %d", e)
	}
	sampled, err := basis.Indices(s.vis)
	if err != nil {
		return s, EpochLog{}, errors.WithMessagef(err, "epoch %d", e)
	}
	t.Logger.Debug("sampled", "epoch", e, "indices", sampled)

	restricted, err := data.Gather(sampled)
	if err != nil {
		return s, EpochLog{}, errors.WithMessagef(err, "epoch %d", e)
	}
	re, im := restricted.Cartesian()

	if err = G.Let(t.vis, s.vis); err != nil {
		return s, EpochLog{}, errors.Wrapf(err, "epoch %d: let visible", e)
	}
	if err = G.Let(t.dataRe, re); err != nil {
		return s, EpochLog{}, errors.Wrapf(err, "epoch %d: let data", e)
	}
	if err = G.Let(t.dataIm, im); err != nil {
		return s, EpochLog{}, errors.Wrapf(err, "epoch %d: let data", e)
	}
	if err = s.m.RunAll(); err != nil {
		return s, EpochLog{}, errors.Wrapf(err, "epoch %d", e)
	}
	l := EpochLog{
		Epoch:  e,
		Epochs: epochs,
		Loss:   t.cost.Data().(float64),
	}
	if err = s.solver.Step(s.model); err != nil {
		return s, EpochLog{}, errors.Wrapf(err, "epoch %d: solver step", e)
	}
	s.m.Reset()
	return s, l, nil
}
