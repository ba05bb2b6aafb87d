package rbm

// Config configures a restricted Boltzmann machine
type Config struct {
	Visible   int     // number of visible units, one per mode
	Hidden    int     // number of hidden units
	InitSigma float64 // standard deviation of the initial weights
}

func DefaultConf(visible, hidden int) Config {
	return Config{
		Visible:   visible,
		Hidden:    hidden,
		InitSigma: 1,
	}
}

func (conf Config) IsValid() bool {
	return conf.Visible >= 1 &&
		// the basis index of a visible vector must fit in an int
		conf.Visible < 63 &&
		conf.Hidden >= 1 &&
		conf.InitSigma >= 0
}
