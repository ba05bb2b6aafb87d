package tomograph

import (
	"math"

	"github.com/gorgonia/tomograph/hermite"
	"github.com/pkg/errors"
	"gorgonia.org/tensor/native"
)

// Loss is the negative mean log-likelihood of the measurements in data given the
// predicted state s. Column k of data must refer to the same basis state as s[k].
//
// Per measurement the likelihood is the squared modulus of the overlap
//
//	L = (Σ_k a_k cos d_k)² + (Σ_k a_k sin d_k)²,   a_k = D_k·A_k,  d_k = Φ_k - φ_k
//
// and the loss is -mean(log(L + eps)). A shift of every phase by the same constant
// leaves it unchanged.
func Loss(data *hermite.Data, s State, eps float64) (float64, error) {
	if data.Cols() != s.Len() || len(s.Phase) != s.Len() {
		return 0, errors.Errorf("data covers %d states but the prediction has %d amplitudes and %d phases", data.Cols(), s.Len(), len(s.Phase))
	}
	amp, err := native.MatrixF64(data.Amplitude)
	if err != nil {
		return 0, errors.Wrapf(err, "Loss failed - amplitude")
	}
	phase, err := native.MatrixF64(data.Phase)
	if err != nil {
		return 0, errors.Wrapf(err, "Loss failed - phase")
	}

	var total float64
	for i := range amp {
		var re, im float64
		for k, d := range amp[i] {
			a := d * s.Amplitude[k]
			sin, cos := math.Sincos(phase[i][k] - s.Phase[k])
			re += a * cos
			im += a * sin
		}
		total += math.Log(re*re + im*im + eps)
	}
	return -total / float64(len(amp)), nil
}
