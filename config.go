package tomograph

import (
	"time"

	"github.com/gorgonia/tomograph/rbm"
)

// Config configures a Tomograph
type Config struct {
	VisSize int // visible units, one per mode. The basis has 2^VisSize states
	HidSize int // hidden units of each RBM

	Gibbs       bool // estimate on persistent Gibbs chains instead of the full basis
	NSamples    int  // number of chains
	NGibbsSteps int  // Gibbs steps per chain per epoch

	InitSigma float64 // std dev of the initial RBM weights
	Eps       float64 // added before every logarithm
	Seed      uint64  // seeds weight init, the initial chains and the samplers
}

func DefaultConfig(visSize, hidSize int) Config {
	return Config{
		VisSize:     visSize,
		HidSize:     hidSize,
		Gibbs:       true,
		NSamples:    2,
		NGibbsSteps: 1,
		InitSigma:   1,
		Eps:         1e-8,
		Seed:        uint64(time.Now().UnixNano()),
	}
}

func (c Config) IsValid() bool {
	return c.rbmConf().IsValid() &&
		c.NSamples >= 1 &&
		c.NGibbsSteps >= 0 &&
		c.Eps > 0
}

func (c Config) rbmConf() rbm.Config {
	return rbm.Config{
		Visible:   c.VisSize,
		Hidden:    c.HidSize,
		InitSigma: c.InitSigma,
	}
}

// rows is the number of visible vectors evaluated per epoch.
func (c Config) rows() int {
	if c.Gibbs {
		return c.NSamples
	}
	return 1 << uint(c.VisSize)
}
