// Package rbm implements a binary restricted Boltzmann machine whose unnormalized
// probability can be evaluated both numerically and as a differentiable Gorgonia
// expression.
package rbm

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float is the dtype of every parameter and visible batch.
var Float = G.Float64

// RBM is a restricted Boltzmann machine with binary visible and hidden units.
//
// The parameters live in tensors owned by the RBM. When the RBM takes part in an
// expression graph (see ProbNode) they are bound to learnable nodes of that graph,
// and the node values become the source of truth until the next graph is built.
type RBM struct {
	Config
	name string
	src  rand.Source

	weights *tensor.Dense // Visible × Hidden
	visBias *tensor.Dense // Visible
	hidBias *tensor.Dense // Hidden

	g               *G.ExprGraph
	w, vBias, hBias *G.Node
}

// New returns a new, uninitialized *RBM. src drives both the weight
// initialization and the Gibbs sampler.
func New(conf Config, name string, src rand.Source) *RBM {
	return &RBM{
		Config: conf,
		name:   name,
		src:    src,
	}
}

// Init draws the weights from N(0, InitSigma²) and zeroes both biases.
func (r *RBM) Init() error {
	if !r.IsValid() {
		return errors.Errorf("invalid RBM config %+v", r.Config)
	}
	r.reset()

	norm := distuv.Normal{Mu: 0, Sigma: r.InitSigma, Src: r.src}
	w := make([]float64, r.Visible*r.Hidden)
	for i := range w {
		w[i] = norm.Rand()
	}
	r.weights = tensor.New(tensor.WithShape(r.Visible, r.Hidden), tensor.WithBacking(w))
	r.visBias = tensor.New(tensor.WithShape(r.Visible), tensor.Of(tensor.Float64))
	r.hidBias = tensor.New(tensor.WithShape(r.Hidden), tensor.Of(tensor.Float64))
	return nil
}

// Name returns the name the RBM's learnables are prefixed with.
func (r *RBM) Name() string { return r.name }

// Weights returns the current Visible × Hidden weight matrix.
func (r *RBM) Weights() *tensor.Dense { return current(r.w, r.weights) }

// VisibleBias returns the current visible bias.
func (r *RBM) VisibleBias() *tensor.Dense { return current(r.vBias, r.visBias) }

// HiddenBias returns the current hidden bias.
func (r *RBM) HiddenBias() *tensor.Dense { return current(r.hBias, r.hidBias) }

// ProbNode returns a node computing the unnormalized probability of every row of vis,
//
//	p(v) = exp(v·a + Σ_j softplus(b_j + (vW)_j))
//
// i.e. exp(-E(v, h)) with the hidden units summed out. The RBM's parameters are
// bound as learnables of vis's graph.
func (r *RBM) ProbNode(vis *G.Node) (*G.Node, error) {
	logp, err := r.LogProbNode(vis)
	if err != nil {
		return nil, err
	}
	retVal, err := G.Exp(logp)
	return retVal, errors.WithStack(err)
}

// LogProbNode is the log of ProbNode, the negative free energy of each row of vis.
func (r *RBM) LogProbNode(vis *G.Node) (*G.Node, error) {
	r.attach(vis.Graph())

	var m maebe
	va := m.do(func() (*G.Node, error) { return G.Mul(vis, r.vBias) })
	pre := m.affine(vis, r.w, r.hBias)
	hidden := m.softplus(pre)
	hidden = m.do(func() (*G.Node, error) { return G.Sum(hidden, 1) })
	logp := m.do(func() (*G.Node, error) { return G.Add(va, hidden) })
	if m.err != nil {
		return nil, m.err
	}
	return logp, nil
}

// Learnables returns the weights, visible bias and hidden bias nodes of the graph
// the RBM was last bound to. It is empty before the first call to ProbNode.
func (r *RBM) Learnables() G.Nodes {
	if r.g == nil {
		return nil
	}
	return G.Nodes{r.w, r.vBias, r.hBias}
}

// attach binds the parameters to learnable nodes in g, once per graph.
func (r *RBM) attach(g *G.ExprGraph) {
	if r.g == g {
		return
	}
	// carry over whatever a previous graph trained
	r.weights, r.visBias, r.hidBias = r.Weights(), r.VisibleBias(), r.HiddenBias()

	r.g = g
	r.w = G.NewMatrix(g, Float, G.WithShape(r.Visible, r.Hidden), G.WithName(r.name+"_w"), G.WithValue(r.weights))
	r.vBias = G.NewVector(g, Float, G.WithShape(r.Visible), G.WithName(r.name+"_a"), G.WithValue(r.visBias))
	r.hBias = G.NewVector(g, Float, G.WithShape(r.Hidden), G.WithName(r.name+"_b"), G.WithValue(r.hidBias))
}

func (r *RBM) reset() {
	r.g = nil
	r.w = nil
	r.vBias = nil
	r.hBias = nil
}

func current(n *G.Node, fallback *tensor.Dense) *tensor.Dense {
	if n == nil {
		return fallback
	}
	if t, ok := n.Value().(*tensor.Dense); ok {
		return t
	}
	return fallback
}
