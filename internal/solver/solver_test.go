package solver_test

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/fcnet-ml/fcnet/internal/nn"
	"github.com/fcnet-ml/fcnet/internal/optim"
	"github.com/fcnet-ml/fcnet/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blobs builds a linearly separable two-class dataset: class 0
// clusters around (+2, +2), class 1 around (-2, -2).
func blobs(n int, seed uint64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		center := 2.0
		if i%2 == 1 {
			center = -2.0
		}
		x.Set(i, 0, center+rng.NormFloat64()*0.3)
		x.Set(i, 1, center+rng.NormFloat64()*0.3)
		y[i] = i % 2
	}
	return x, y
}

func TestSolver_Train(t *testing.T) {
	xTrain, yTrain := blobs(40, 1)
	xVal, yVal := blobs(20, 2)

	net, err := nn.NewTwoLayerNet(nn.TwoLayerConfig{
		InputDim:    2,
		HiddenDim:   10,
		NumClasses:  2,
		WeightScale: 0.5,
		Seed:        3,
	})
	require.NoError(t, err)

	s := solver.New(net, optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9}), solver.Config{
		Epochs:    20,
		BatchSize: 10,
		Seed:      4,
		Quiet:     true,
	})
	require.NoError(t, s.Train(xTrain, yTrain, xVal, yVal))

	// 40 examples / batches of 10 = 4 steps per epoch.
	assert.Len(t, s.LossHistory, 20*4)
	assert.Len(t, s.TrainAccHistory, 20)
	assert.Len(t, s.ValAccHistory, 20)

	first := s.LossHistory[0]
	last := s.LossHistory[len(s.LossHistory)-1]
	assert.Lessf(t, last, first, "loss did not decrease: first=%g last=%g", first, last)

	// The blobs are linearly separable with a wide margin; after 20
	// epochs the net should classify most of the validation set.
	finalVal := s.ValAccHistory[len(s.ValAccHistory)-1]
	assert.Greater(t, finalVal, 0.9)
}

func TestSolver_TrainWithoutValidation(t *testing.T) {
	xTrain, yTrain := blobs(20, 5)

	net, err := nn.NewTwoLayerNet(nn.TwoLayerConfig{
		InputDim:   2,
		HiddenDim:  5,
		NumClasses: 2,
		Seed:       6,
	})
	require.NoError(t, err)

	s := solver.New(net, optim.NewSGD(optim.SGDConfig{LR: 0.05}), solver.Config{
		Epochs:    3,
		BatchSize: 5,
		Seed:      7,
		Quiet:     true,
	})
	require.NoError(t, s.Train(xTrain, yTrain, nil, nil))

	assert.Len(t, s.LossHistory, 3*4)
	assert.Len(t, s.TrainAccHistory, 3)
	assert.Empty(t, s.ValAccHistory)
}

func TestSolver_EmptyTrainingSet(t *testing.T) {
	net, err := nn.NewTwoLayerNet(nn.TwoLayerConfig{
		InputDim:   2,
		HiddenDim:  5,
		NumClasses: 2,
	})
	require.NoError(t, err)

	s := solver.New(net, optim.NewSGD(optim.SGDConfig{}), solver.Config{Quiet: true})

	var empty mat.Dense
	assert.Error(t, s.Train(&empty, nil, nil, nil))
}

func TestSolver_BatchLargerThanDataset(t *testing.T) {
	xTrain, yTrain := blobs(6, 8)

	net, err := nn.NewTwoLayerNet(nn.TwoLayerConfig{
		InputDim:   2,
		HiddenDim:  4,
		NumClasses: 2,
		Seed:       9,
	})
	require.NoError(t, err)

	// Batch size clamps to the dataset size: one step per epoch.
	s := solver.New(net, optim.NewSGD(optim.SGDConfig{}), solver.Config{
		Epochs:    2,
		BatchSize: 100,
		Quiet:     true,
	})
	require.NoError(t, s.Train(xTrain, yTrain, nil, nil))
	assert.Len(t, s.LossHistory, 2)
}
