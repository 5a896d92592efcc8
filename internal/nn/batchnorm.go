package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Default batch-norm hyperparameters.
const (
	defaultBNMomentum = 0.9
	defaultBNEps      = 1e-5
)

// BatchNormState carries the running statistics a batch-norm layer
// accumulates during training and consumes at test time. Unlike
// caches, the state persists across Loss calls; it is the only model
// state the forward pass itself mutates (and only in ModeTrain).
type BatchNormState struct {
	runningMean []float64
	runningVar  []float64
	momentum    float64
	eps         float64
}

// NewBatchNormState creates running statistics for a layer with dim
// features, initialized to zero mean and zero variance.
func NewBatchNormState(dim int) *BatchNormState {
	return &BatchNormState{
		runningMean: make([]float64, dim),
		runningVar:  make([]float64, dim),
		momentum:    defaultBNMomentum,
		eps:         defaultBNEps,
	}
}

// BatchNormCache holds forward-pass intermediates for BatchNormBackward.
type BatchNormCache struct {
	xhat  *mat.Dense
	istd  []float64 // 1/sqrt(var + eps), per feature
	gamma *mat.Dense
}

// BatchNormForward normalizes each feature column of x, then scales
// and shifts it: out = gamma * (x - mean) / sqrt(var + eps) + beta.
//
// In ModeTrain the per-batch mean and (biased) variance are used and
// folded into the running statistics:
//
//	running = momentum*running + (1-momentum)*batch
//
// In ModeTest the running statistics are used instead and the state
// is left untouched. Backward passes are only supported for caches
// produced in ModeTrain.
//
// Parameters:
//   - x: Input with shape [N, D]
//   - gamma, beta: Scale and shift with shape [1, D]
//   - state: Running statistics for this layer
//   - mode: ModeTrain or ModeTest
func BatchNormForward(x, gamma, beta *mat.Dense, state *BatchNormState, mode Mode) (*mat.Dense, *BatchNormCache, error) {
	n, d := x.Dims()
	if d != len(state.runningMean) {
		return nil, nil, &ShapeError{
			Op:   "BatchNormForward",
			Want: fmt.Sprintf("x with %d features", len(state.runningMean)),
			Got:  fmt.Sprintf("%d features", d),
		}
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("BatchNormForward: %w", ErrEmptyBatch)
	}

	mean := make([]float64, d)
	variance := make([]float64, d)

	switch mode {
	case ModeTrain:
		for i := 0; i < n; i++ {
			row := x.RawRowView(i)
			for j, v := range row {
				mean[j] += v
			}
		}
		for j := range mean {
			mean[j] /= float64(n)
		}
		for i := 0; i < n; i++ {
			row := x.RawRowView(i)
			for j, v := range row {
				diff := v - mean[j]
				variance[j] += diff * diff
			}
		}
		for j := range variance {
			variance[j] /= float64(n)
		}

		m := state.momentum
		for j := range mean {
			state.runningMean[j] = m*state.runningMean[j] + (1-m)*mean[j]
			state.runningVar[j] = m*state.runningVar[j] + (1-m)*variance[j]
		}
	case ModeTest:
		copy(mean, state.runningMean)
		copy(variance, state.runningVar)
	}

	istd := make([]float64, d)
	for j := range istd {
		istd[j] = 1.0 / math.Sqrt(variance[j]+state.eps)
	}

	xhat := mat.NewDense(n, d, nil)
	out := mat.NewDense(n, d, nil)
	gammaRow := gamma.RawRowView(0)
	betaRow := beta.RawRowView(0)
	for i := 0; i < n; i++ {
		xRow := x.RawRowView(i)
		xhatRow := xhat.RawRowView(i)
		outRow := out.RawRowView(i)
		for j := range xRow {
			xhatRow[j] = (xRow[j] - mean[j]) * istd[j]
			outRow[j] = gammaRow[j]*xhatRow[j] + betaRow[j]
		}
	}

	return out, &BatchNormCache{xhat: xhat, istd: istd, gamma: gamma}, nil
}

// BatchNormBackward computes gradients of the batch normalization
// transform for a ModeTrain forward pass.
//
// Returns:
//   - dx: [N, D] gradient with respect to the input
//   - dgamma, dbeta: [1, D] gradients with respect to scale and shift
//
// dx uses the closed form obtained by differentiating through the
// batch statistics:
//
//	dx = gamma*istd/N * (N*dout - Σdout - xhat*Σ(dout*xhat))
func BatchNormBackward(dout *mat.Dense, cache *BatchNormCache) (dx, dgamma, dbeta *mat.Dense) {
	n, d := dout.Dims()

	dgamma = mat.NewDense(1, d, nil)
	dbeta = mat.NewDense(1, d, nil)
	dgammaRow := dgamma.RawRowView(0)
	dbetaRow := dbeta.RawRowView(0)

	for i := 0; i < n; i++ {
		doutRow := dout.RawRowView(i)
		xhatRow := cache.xhat.RawRowView(i)
		for j := range doutRow {
			dbetaRow[j] += doutRow[j]
			dgammaRow[j] += doutRow[j] * xhatRow[j]
		}
	}

	dx = mat.NewDense(n, d, nil)
	gammaRow := cache.gamma.RawRowView(0)
	for i := 0; i < n; i++ {
		doutRow := dout.RawRowView(i)
		xhatRow := cache.xhat.RawRowView(i)
		dxRow := dx.RawRowView(i)
		for j := range dxRow {
			dxRow[j] = gammaRow[j] * cache.istd[j] / float64(n) *
				(float64(n)*doutRow[j] - dbetaRow[j] - xhatRow[j]*dgammaRow[j])
		}
	}

	return dx, dgamma, dbeta
}
