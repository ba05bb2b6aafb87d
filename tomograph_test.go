package tomograph

import (
	"bytes"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gorgonia/tomograph/basis"
	"github.com/gorgonia/tomograph/hermite"
	"github.com/gorgonia/tomograph/rbm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

func newTestTomograph(t *testing.T, conf Config) *Tomograph {
	tg, err := New(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tg.Logger = log.New(io.Discard)
	return tg
}

// vacuum draws n homodyne measurements of the |0> state: x ~ N(0, 1/2), θ uniform.
func vacuum(n int, seed uint64) (x, theta []float64) {
	r := rand.New(rand.NewPCG(seed, seed))
	x = make([]float64, n)
	theta = make([]float64, n)
	for i := range x {
		x[i] = r.NormFloat64() * math.Sqrt(0.5)
		theta[i] = r.Float64() * math.Pi
	}
	return x, theta
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// recordingMachine keeps a copy of every batch its Sample receives and returns.
type recordingMachine struct {
	*rbm.RBM
	in, out []*tensor.Dense
}

func (m *recordingMachine) Sample(vis *tensor.Dense, steps int) (*tensor.Dense, error) {
	m.in = append(m.in, vis.Clone().(*tensor.Dense))
	retVal, err := m.RBM.Sample(vis, steps)
	if err == nil {
		m.out = append(m.out, retVal.Clone().(*tensor.Dense))
	}
	return retVal, err
}

// fillBias sets every visible bias of an RBM backed Machine to v.
func fillBias(m Machine, v float64) {
	bias := m.(*rbm.RBM).VisibleBias().Data().([]float64)
	for i := range bias {
		bias[i] = v
	}
}

func TestNewInvalid(t *testing.T) {
	conf := DefaultConfig(2, 2)
	conf.Eps = 0
	_, err := New(conf)
	assert.Error(t, err)
}

func TestPredictNormalised(t *testing.T) {
	for seed := uint64(0); seed < 5; seed++ {
		conf := DefaultConfig(3, 4)
		conf.Seed = seed
		conf.InitSigma = 0.5 * float64(seed+1)
		tg := newTestTomograph(t, conf)

		s, err := tg.Predict()
		require.NoError(t, err)
		require.Equal(t, 8, s.Len())
		require.Len(t, s.Phase, 8)
		assert.InDelta(t, 1, floats.Sum(s.Probabilities()), 1e-12, "seed %d", seed)
		for _, a := range s.Amplitude {
			assert.True(t, a >= 0)
		}
		for _, p := range s.Phase {
			assert.True(t, finite(p))
		}
	}
}

func TestForwardGibbs(t *testing.T) {
	conf := DefaultConfig(3, 2)
	conf.Seed = 42
	conf.NSamples = 4
	conf.NGibbsSteps = 2
	tg := newTestTomograph(t, conf)

	start := basis.Vectors([]int{0, 3, 5, 7}, 3)
	s, next, err := tg.Forward(start)
	require.NoError(t, err)
	assert.True(t, next.Shape().Eq(tensor.Shape{4, 3}))
	assert.Equal(t, 4, s.Len())
	// normalised over the sampled rows only
	assert.InDelta(t, 1, floats.Sum(s.Probabilities()), 1e-12)

	// the chain continues from where it stopped
	s2, next2, err := tg.Forward(next)
	require.NoError(t, err)
	assert.Equal(t, 4, s2.Len())
	assert.True(t, next2.Shape().Eq(next.Shape()))
}

func TestForwardEnumeration(t *testing.T) {
	conf := DefaultConfig(2, 3)
	conf.Seed = 7
	conf.Gibbs = false
	tg := newTestTomograph(t, conf)

	s, vis, err := tg.Forward(basis.Vectors([]int{1}, 2))
	require.NoError(t, err)
	idx, err := basis.Indices(vis)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, idx, "input batch is ignored")

	predicted, err := tg.Predict()
	require.NoError(t, err)
	assert.InDeltaSlice(t, predicted.Amplitude, s.Amplitude, 1e-15)
	assert.InDeltaSlice(t, predicted.Phase, s.Phase, 1e-15)
}

func TestLossIdentical(t *testing.T) {
	data := &hermite.Data{
		Amplitude: tensor.New(tensor.WithShape(1, 1), tensor.WithBacking([]float64{1})),
		Phase:     tensor.New(tensor.WithShape(1, 1), tensor.WithBacking([]float64{0.3})),
	}
	s := State{Amplitude: []float64{1}, Phase: []float64{0.3}}
	loss, err := Loss(data, s, 1e-8)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(1+1e-8), loss, 1e-15)
}

func TestLossGlobalPhase(t *testing.T) {
	x, theta := vacuum(16, 3)
	data, err := hermite.Encode([]int{0, 1, 2, 3}, x, theta)
	require.NoError(t, err)

	s := State{
		Amplitude: []float64{0.7, 0.5, 0.4, math.Sqrt(1 - 0.49 - 0.25 - 0.16)},
		Phase:     []float64{0.1, -1.2, 2.5, 0.4},
	}
	want, err := Loss(data, s, 1e-8)
	require.NoError(t, err)

	const shift = 1.234
	shiftedPhase := data.Phase.Clone().(*tensor.Dense)
	for i, p := range shiftedPhase.Data().([]float64) {
		shiftedPhase.Data().([]float64)[i] = p + shift
	}
	shiftedData := &hermite.Data{Amplitude: data.Amplitude, Phase: shiftedPhase}
	shifted := State{Amplitude: s.Amplitude, Phase: make([]float64, len(s.Phase))}
	for i, p := range s.Phase {
		shifted.Phase[i] = p + shift
	}

	got, err := Loss(shiftedData, shifted, 1e-8)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestLossOrthogonal(t *testing.T) {
	data := &hermite.Data{
		Amplitude: tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 0, 1, 0})),
		Phase:     tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{0, 0, 0, 0})),
	}
	s := State{Amplitude: []float64{0, 1}, Phase: []float64{0, 0}}
	loss, err := Loss(data, s, 1e-8)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(1e-8), loss, 1e-9, "saturates at -log(eps)")
}

func TestLossShapeMismatch(t *testing.T) {
	data, err := hermite.Encode([]int{0, 1}, []float64{0}, []float64{0})
	require.NoError(t, err)
	_, err = Loss(data, State{Amplitude: []float64{1}, Phase: []float64{0}}, 1e-8)
	assert.Error(t, err)
}

func TestFitGibbs(t *testing.T) {
	conf := DefaultConfig(2, 2)
	conf.Seed = 1
	tg := newTestTomograph(t, conf)
	before, err := tg.Predict()
	require.NoError(t, err)

	x, theta := vacuum(32, 11)
	h := NewHistory()
	var calls int
	counter := func(l EpochLog) {
		assert.Equal(t, calls, l.Epoch)
		assert.Equal(t, 10, l.Epochs)
		calls++
	}
	require.NoError(t, tg.Fit(x, theta, 10, 1e-2, h.Callback(), counter))

	assert.Equal(t, 10, calls)
	require.Len(t, h.Logs, 10)
	for _, l := range h.Losses() {
		assert.True(t, finite(l), "loss %v", l)
	}

	after, err := tg.Predict()
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "parameters should have moved")
	assert.InDelta(t, 1, floats.Sum(after.Probabilities()), 1e-12)
}

// with a zero learning rate nothing moves, so every epoch reports the loss of the
// untrained state over the full basis.
func TestFitMatchesLoss(t *testing.T) {
	conf := DefaultConfig(2, 3)
	conf.Seed = 5
	conf.Gibbs = false
	tg := newTestTomograph(t, conf)

	x, theta := vacuum(20, 2)
	data, err := hermite.Encode(basis.Range(4), x, theta)
	require.NoError(t, err)
	s, err := tg.Predict()
	require.NoError(t, err)
	want, err := tg.Loss(data, s)
	require.NoError(t, err)

	h := NewHistory()
	require.NoError(t, tg.Fit(x, theta, 3, 0, h.Callback()))
	for _, got := range h.Losses() {
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestFitLearns(t *testing.T) {
	conf := DefaultConfig(2, 4)
	conf.Seed = 9
	conf.Gibbs = false
	tg := newTestTomograph(t, conf)

	x, theta := vacuum(64, 4)
	h := NewHistory()
	require.NoError(t, tg.Fit(x, theta, 300, 5e-2, h.Callback()))

	losses := h.Losses()
	first := floats.Sum(losses[:5]) / 5
	last := floats.Sum(losses[len(losses)-5:]) / 5
	assert.True(t, last < first, "loss should decrease: first %v, last %v", first, last)
}

func TestFitRefit(t *testing.T) {
	conf := DefaultConfig(2, 2)
	conf.Seed = 3
	tg := newTestTomograph(t, conf)
	x, theta := vacuum(8, 8)
	require.NoError(t, tg.Fit(x, theta, 2, 1e-2))
	// a different batch size rebuilds the graph
	x, theta = vacuum(12, 9)
	require.NoError(t, tg.Fit(x, theta, 2, 1e-2))
	assert.Len(t, tg.Model(), 6)
}

func TestFitPersistentChain(t *testing.T) {
	conf := DefaultConfig(3, 2)
	conf.Seed = 21
	conf.NSamples = 5
	conf.NGibbsSteps = 2
	tg := newTestTomograph(t, conf)
	rec := &recordingMachine{RBM: tg.Amplitude.(*rbm.RBM)}
	tg.Amplitude = rec

	x, theta := vacuum(16, 6)
	require.NoError(t, tg.Fit(x, theta, 4, 1e-2))
	require.Len(t, rec.in, 4)
	require.Len(t, rec.out, 4)

	assert.True(t, rec.in[0].Shape().Eq(tensor.Shape{5, 3}))
	start, err := basis.Indices(rec.in[0])
	require.NoError(t, err)
	for _, i := range start {
		assert.True(t, i >= 0 && i < 8, "initial chain index %d", i)
	}

	// every epoch continues from where the previous one stopped
	for e := 1; e < len(rec.in); e++ {
		assert.Equal(t, rec.out[e-1].Data(), rec.in[e].Data(), "epoch %d", e)
	}
}

func TestFitSingleChain(t *testing.T) {
	conf := DefaultConfig(2, 2)
	conf.Seed = 13
	conf.NSamples = 1
	tg := newTestTomograph(t, conf)

	x, theta := vacuum(8, 5)
	h := NewHistory()
	require.NoError(t, tg.Fit(x, theta, 5, 1e-2, h.Callback()))
	require.Len(t, h.Logs, 5)
	for _, l := range h.Losses() {
		assert.True(t, finite(l), "loss %v", l)
	}
	// a single sampled row is normalised onto itself
	s, _, err := tg.Forward(basis.Vectors([]int{2}, 2))
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.InDelta(t, 1, s.Amplitude[0], 1e-12)
}

func TestFitSingleMeasurement(t *testing.T) {
	conf := DefaultConfig(2, 3)
	conf.Seed = 17
	conf.Gibbs = false
	tg := newTestTomograph(t, conf)

	x, theta := []float64{0.3}, []float64{0.7}
	data, err := hermite.Encode(basis.Range(4), x, theta)
	require.NoError(t, err)
	s, err := tg.Predict()
	require.NoError(t, err)
	want, err := tg.Loss(data, s)
	require.NoError(t, err)

	h := NewHistory()
	require.NoError(t, tg.Fit(x, theta, 3, 0, h.Callback()))
	for _, got := range h.Losses() {
		assert.InDelta(t, want, got, 1e-9)
	}
}

// free energies far beyond exp's range still give a normalised state.
func TestPredictLargeFreeEnergy(t *testing.T) {
	conf := DefaultConfig(2, 2)
	conf.Seed = 4
	conf.Gibbs = false
	tg := newTestTomograph(t, conf)
	fillBias(tg.Amplitude, 360)
	fillBias(tg.Phase, 360)

	s, err := tg.Predict()
	require.NoError(t, err)
	assert.InDelta(t, 1, floats.Sum(s.Probabilities()), 1e-12)
	for i := range s.Amplitude {
		assert.True(t, finite(s.Amplitude[i]), "amplitude %d", i)
		assert.True(t, finite(s.Phase[i]), "phase %d", i)
	}
	// |11> carries both biases
	assert.InDelta(t, 1, s.Amplitude[3], 1e-12)

	x, theta := vacuum(10, 1)
	data, err := hermite.Encode(basis.Range(4), x, theta)
	require.NoError(t, err)
	want, err := tg.Loss(data, s)
	require.NoError(t, err)

	h := NewHistory()
	require.NoError(t, tg.Fit(x, theta, 1, 0, h.Callback()))
	require.Len(t, h.Logs, 1)
	assert.InDelta(t, want, h.Logs[0].Loss, 1e-9)
}

func TestFitBadInput(t *testing.T) {
	tg := newTestTomograph(t, DefaultConfig(2, 2))
	err := tg.Fit([]float64{0, 1}, []float64{0}, 1, 1e-2)
	assert.Error(t, err)
}

func TestHistoryDump(t *testing.T) {
	h := NewHistory()
	cb := h.Callback()
	cb(EpochLog{Epoch: 0, Epochs: 2, Loss: 1.5})
	cb(EpochLog{Epoch: 1, Epochs: 2, Loss: 0.25})
	assert.Equal(t, []float64{1.5, 0.25}, h.Losses())

	filename := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, h.Dump(filename))
	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "epoch,loss\n0,1.5\n1,0.25\n", string(b))
}

func TestLogCallback(t *testing.T) {
	var buf bytes.Buffer
	cb := LogCallback(log.New(&buf))
	cb(EpochLog{Epoch: 3, Epochs: 10, Loss: 0.5})
	out := buf.String()
	assert.True(t, strings.Contains(out, "epochs=10"), out)
	assert.True(t, strings.Contains(out, "loss=0.5"), out)
}
