package tomograph

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Machine is the probabilistic model a Tomograph fits. *rbm.RBM is the canonical one.
type Machine interface {
	// LogProb returns log p(v), up to a constant shared by all rows, for every row of vis.
	LogProb(vis *tensor.Dense) ([]float64, error)

	// LogProbNode is the differentiable form of LogProb, built in vis's graph.
	LogProbNode(vis *G.Node) (*G.Node, error)

	// Sample runs steps of block Gibbs sampling seeded from every row of vis.
	Sample(vis *tensor.Dense, steps int) (*tensor.Dense, error)

	// Learnables are the trainable nodes bound by the last LogProbNode call.
	Learnables() G.Nodes
}

// State is a (partial) wavefunction over a set of basis states.
type State struct {
	Amplitude []float64
	Phase     []float64 // radians, not wrapped
}

// Len is the number of basis states in s.
func (s State) Len() int { return len(s.Amplitude) }

// Probabilities returns amplitude² per basis state.
func (s State) Probabilities() []float64 {
	retVal := make([]float64, len(s.Amplitude))
	for i, a := range s.Amplitude {
		retVal[i] = a * a
	}
	return retVal
}

// EpochLog is emitted once per training epoch.
type EpochLog struct {
	Epoch  int
	Epochs int
	Loss   float64
}

// Callback observes training. Its return is never consumed.
type Callback func(EpochLog)
