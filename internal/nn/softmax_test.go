package nn_test

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/fcnet-ml/fcnet/internal/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// relError computes the relative error between two scalars, guarding
// against division by zero for near-zero pairs.
func relError(a, b float64) float64 {
	denom := math.Abs(a) + math.Abs(b)
	if denom < 1e-8 {
		denom = 1e-8
	}
	return math.Abs(a-b) / denom
}

// numericalGradient computes a centered finite-difference gradient of
// f with respect to every entry of m, perturbing m in place.
func numericalGradient(t *testing.T, f func() float64, m *mat.Dense, h float64) *mat.Dense {
	t.Helper()

	r, c := m.Dims()
	grad := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			orig := m.At(i, j)

			m.Set(i, j, orig+h)
			fPlus := f()
			m.Set(i, j, orig-h)
			fMinus := f()
			m.Set(i, j, orig)

			grad.Set(i, j, (fPlus-fMinus)/(2*h))
		}
	}
	return grad
}

// checkGradient asserts that the analytic gradient matches the
// numeric one entrywise within the given relative tolerance.
func checkGradient(t *testing.T, name string, analytic, numeric *mat.Dense, tol float64) {
	t.Helper()

	r, c := analytic.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a, n := analytic.At(i, j), numeric.At(i, j)
			if re := relError(a, n); re > tol {
				t.Errorf("%s[%d,%d]: analytic %g vs numeric %g (rel err %g)", name, i, j, a, n, re)
			}
		}
	}
}

// randomDense creates an r×c matrix with uniform entries in [-1, 1).
func randomDense(r, c int, rng *rand.Rand) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, rng.Float64()*2-1)
		}
	}
	return m
}

func TestSoftmaxLoss_UniformScores(t *testing.T) {
	// All-zero scores give a uniform distribution over C classes, so
	// the loss must be log(C) regardless of the label.
	scores := mat.NewDense(1, 3, nil)

	loss, dscores, err := nn.SoftmaxLoss(scores, []int{0})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3), loss, 1e-12)

	// Gradient: (1/3 - onehot) / N.
	assert.InDelta(t, 1.0/3-1, dscores.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0/3, dscores.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0/3, dscores.At(0, 2), 1e-12)
}

func TestSoftmaxLoss_ShiftInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := randomDense(6, 4, rng)
	labels := []int{0, 1, 2, 3, 1, 0}

	base, _, err := nn.SoftmaxLoss(scores, labels)
	require.NoError(t, err)

	// Adding a constant to every score in a row must not change the
	// loss, per-row or globally.
	for _, shift := range []float64{-1000, -3.5, 0.25, 1e6} {
		shifted := mat.NewDense(6, 4, nil)
		shifted.Apply(func(_, _ int, v float64) float64 { return v + shift }, scores)

		loss, _, err := nn.SoftmaxLoss(shifted, labels)
		require.NoError(t, err)
		assert.InDeltaf(t, base, loss, 1e-9, "shift %g changed the loss", shift)
	}
}

func TestSoftmaxLoss_LargeScores(t *testing.T) {
	// Scores near 1000 overflow exp() without the max shift.
	scores := mat.NewDense(2, 3, []float64{
		1000, 999, 998,
		-1000, -999, -998,
	})

	loss, _, err := nn.SoftmaxLoss(scores, []int{0, 2})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
}

func TestSoftmaxLoss_GradientCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	scores := randomDense(4, 5, rng)
	labels := []int{3, 0, 1, 4}

	_, dscores, err := nn.SoftmaxLoss(scores, labels)
	require.NoError(t, err)

	numeric := numericalGradient(t, func() float64 {
		loss, _, err := nn.SoftmaxLoss(scores, labels)
		require.NoError(t, err)
		return loss
	}, scores, 1e-5)

	checkGradient(t, "dscores", dscores, numeric, 1e-5)
}

func TestSoftmaxLoss_Errors(t *testing.T) {
	// Zero-row batch fails fast instead of dividing by zero.
	var empty mat.Dense
	_, _, err := nn.SoftmaxLoss(&empty, nil)
	assert.ErrorIs(t, err, nn.ErrEmptyBatch)

	scores := mat.NewDense(2, 3, nil)

	_, _, err = nn.SoftmaxLoss(scores, []int{0})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, _, err = nn.SoftmaxLoss(scores, []int{0, 3})
	assert.ErrorIs(t, err, nn.ErrLabelOutOfRange)

	_, _, err = nn.SoftmaxLoss(scores, []int{0, -1})
	assert.ErrorIs(t, err, nn.ErrLabelOutOfRange)
}

func TestClassifierLoss_ZeroWeights(t *testing.T) {
	// W = 2×3 zeros, X = [1, 1], y = [0]: uniform probabilities over
	// 3 classes, loss log(3), and dW columns differ only by the
	// one-hot correction at class 0.
	w := mat.NewDense(2, 3, nil)
	x := mat.NewDense(1, 2, []float64{1, 1})
	y := []int{0}

	loss, dw, err := nn.ClassifierLoss(w, x, y, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(3), loss, 1e-12)

	// dW[:, j] = x * (1/3 - 1{j == 0}).
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0/3-1, dw.At(i, 0), 1e-12)
		assert.InDelta(t, 1.0/3, dw.At(i, 1), 1e-12)
		assert.InDelta(t, 1.0/3, dw.At(i, 2), 1e-12)
	}
}

func TestClassifierLoss_RegZeroIsNoOp(t *testing.T) {
	// With a zero weight matrix the L2 penalty vanishes for any reg,
	// so the loss equals the pure data loss.
	w := mat.NewDense(2, 3, nil)
	x := mat.NewDense(1, 2, []float64{1, 1})
	y := []int{0}

	lossNoReg, _, err := nn.ClassifierLoss(w, x, y, 0)
	require.NoError(t, err)
	lossReg, _, err := nn.ClassifierLoss(w, x, y, 5.0)
	require.NoError(t, err)

	assert.Equal(t, lossNoReg, lossReg)
}

func TestClassifierLoss_GradientCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w := randomDense(4, 3, rng)
	x := randomDense(6, 4, rng)
	y := []int{0, 1, 2, 0, 1, 2}
	reg := 0.5

	_, dw, err := nn.ClassifierLoss(w, x, y, reg)
	require.NoError(t, err)

	numeric := numericalGradient(t, func() float64 {
		loss, _, err := nn.ClassifierLoss(w, x, y, reg)
		require.NoError(t, err)
		return loss
	}, w, 1e-5)

	checkGradient(t, "dW", dw, numeric, 1e-5)
}

func TestClassifierLoss_ShapeMismatch(t *testing.T) {
	w := mat.NewDense(3, 2, nil)
	x := mat.NewDense(1, 2, []float64{1, 1})

	_, _, err := nn.ClassifierLoss(w, x, []int{0}, 0)
	var shapeErr *nn.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestAccuracy(t *testing.T) {
	scores := mat.NewDense(4, 3, []float64{
		5, 1, 0, // predicts 0
		0, 2, 1, // predicts 1
		0, 1, 9, // predicts 2
		3, 2, 1, // predicts 0
	})

	assert.Equal(t, 1.0, nn.Accuracy(scores, []int{0, 1, 2, 0}))
	assert.Equal(t, 0.5, nn.Accuracy(scores, []int{0, 1, 0, 1}))
	assert.Equal(t, 0.0, nn.Accuracy(scores, []int{1, 0, 1, 2}))
}
