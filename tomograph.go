// Package tomograph reconstructs a quantum state from homodyne measurements with a
// pair of restricted Boltzmann machines: one for the amplitudes and one for the
// phases of the state in the Fock basis.
package tomograph

import (
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/gorgonia/tomograph/basis"
	"github.com/gorgonia/tomograph/hermite"
	"github.com/gorgonia/tomograph/rbm"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Tomograph is the top level structure and the entry point of the API.
type Tomograph struct {
	Config
	Amplitude Machine // models amplitude²
	Phase     Machine // models exp(2·phase)

	Logger *log.Logger

	rand *rand.Rand

	// training graph, rebuilt by every Fit
	g              *G.ExprGraph
	vis            *G.Node // visible rows fed to both machines
	dataRe, dataIm *G.Node // data wavefunction samples, rectangular form
	cost           G.Value
}

// New creates a Tomograph with two freshly initialized RBMs.
func New(conf Config) (*Tomograph, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid config %+v", conf)
	}
	amplitude := rbm.New(conf.rbmConf(), "amplitude", rand.NewPCG(conf.Seed, 1))
	if err := amplitude.Init(); err != nil {
		return nil, errors.WithMessage(err, "amplitude RBM")
	}
	phase := rbm.New(conf.rbmConf(), "phase", rand.NewPCG(conf.Seed, 2))
	if err := phase.Init(); err != nil {
		return nil, errors.WithMessage(err, "phase RBM")
	}
	return &Tomograph{
		Config:    conf,
		Amplitude: amplitude,
		Phase:     phase,
		Logger:    log.Default(),
		rand:      rand.New(rand.NewPCG(conf.Seed, 0)),
	}, nil
}

// Forward advances the visible batch and evaluates the state on it.
//
// With Gibbs enabled vis is replaced by NGibbsSteps of amplitude RBM sampling seeded
// at vis. Otherwise vis is ignored and the full basis is used. The returned batch is
// the one the state was evaluated on.
//
// On a sampled batch the amplitudes are normalised over that batch only, which is a
// local rather than a global normalisation.
func (t *Tomograph) Forward(vis *tensor.Dense) (State, *tensor.Dense, error) {
	next, err := t.advance(vis)
	if err != nil {
		return State{}, nil, err
	}
	s, err := t.evaluate(next)
	if err != nil {
		return State{}, nil, err
	}
	return s, next, nil
}

// Predict evaluates the state over the full basis, in index order.
func (t *Tomograph) Predict() (State, error) {
	return t.evaluate(basis.Enumerate(t.VisSize))
}

// Loss is the negative log-likelihood of data under s, using the Tomograph's eps.
func (t *Tomograph) Loss(data *hermite.Data, s State) (float64, error) {
	return Loss(data, s, t.Eps)
}

// Model returns the learnables of both machines in the current training graph.
func (t *Tomograph) Model() G.Nodes {
	return append(t.Amplitude.Learnables(), t.Phase.Learnables()...)
}

// advance is the chain step shared by Forward and Fit.
func (t *Tomograph) advance(vis *tensor.Dense) (*tensor.Dense, error) {
	if !t.Gibbs {
		return basis.Enumerate(t.VisSize), nil
	}
	next, err := t.Amplitude.Sample(vis, t.NGibbsSteps)
	if err != nil {
		return nil, errors.WithMessage(err, "Gibbs sampling failed")
	}
	return next, nil
}

// evaluate computes amplitude = sqrt(p/Σp) and phase = log(q + eps)/2 on vis.
// Both are taken from log p and log q so that large free energies do not overflow.
func (t *Tomograph) evaluate(vis *tensor.Dense) (State, error) {
	logp, err := t.Amplitude.LogProb(vis)
	if err != nil {
		return State{}, errors.WithMessage(err, "amplitude")
	}
	logq, err := t.Phase.LogProb(vis)
	if err != nil {
		return State{}, errors.WithMessage(err, "phase")
	}

	logTotal := floats.LogSumExp(logp)
	logEps := math.Log(t.Eps)
	s := State{
		Amplitude: make([]float64, len(logp)),
		Phase:     make([]float64, len(logq)),
	}
	for i := range logp {
		s.Amplitude[i] = math.Exp((logp[i] - logTotal) / 2)
		s.Phase[i] = floats.LogSumExp([]float64{logq[i], logEps}) / 2
	}
	return s, nil
}

// initialChains draws NSamples basis states uniformly at random.
func (t *Tomograph) initialChains() *tensor.Dense {
	n := 1 << uint(t.VisSize)
	indices := make([]int, t.NSamples)
	for i := range indices {
		indices[i] = t.rand.IntN(n)
	}
	return basis.Vectors(indices, t.VisSize)
}
