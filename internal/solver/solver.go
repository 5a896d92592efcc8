// Package solver runs mini-batch gradient descent over a model,
// pairing the gradient maps produced by Loss with an update rule
// from internal/optim.
//
// The solver is strictly sequential: one in-flight Loss call per
// model, no goroutines, no cancellation. It owns the epoch/batch
// bookkeeping and progress logging; the model owns the math.
package solver

import (
	"errors"
	"log"
	"time"

	"golang.org/x/exp/rand"

	"github.com/fcnet-ml/fcnet/internal/metrics"
	"github.com/fcnet-ml/fcnet/internal/nn"
	"github.com/fcnet-ml/fcnet/internal/optim"
	"gonum.org/v1/gonum/mat"
)

// Model is the training surface the solver needs: a combined
// loss/gradient pass for updates and an inference pass for accuracy.
type Model interface {
	Loss(x *mat.Dense, y []int) (float64, map[*nn.Parameter]*mat.Dense, error)
	Forward(x *mat.Dense) (*mat.Dense, error)
}

// Config captures the knobs of the training loop.
type Config struct {
	Epochs    int    // Number of passes over the training set (default: 10)
	BatchSize int    // Examples per gradient step (default: 100)
	LogEvery  int    // Steps between progress lines; 0 disables step logging
	EvalSize  int    // Max examples sampled for accuracy checks (default: 1000)
	Seed      uint64 // Seed for batch shuffling
	Quiet     bool   // Suppress all logging
}

// Solver trains a model with mini-batch gradient descent.
//
// After Train returns, LossHistory holds the loss of every step and
// TrainAccHistory/ValAccHistory one accuracy sample per epoch.
type Solver struct {
	model Model
	opt   optim.Optimizer
	cfg   Config
	rng   *rand.Rand

	LossHistory     []float64
	TrainAccHistory []float64
	ValAccHistory   []float64
}

// New creates a solver with defaults filled in.
func New(model Model, opt optim.Optimizer, cfg Config) *Solver {
	if cfg.Epochs <= 0 {
		cfg.Epochs = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.EvalSize <= 0 {
		cfg.EvalSize = 1000
	}
	return &Solver{
		model: model,
		opt:   opt,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Train runs the configured number of epochs over the training set.
// Validation data may be nil, in which case only training accuracy is
// tracked.
func (s *Solver) Train(xTrain *mat.Dense, yTrain []int, xVal *mat.Dense, yVal []int) error {
	n, _ := xTrain.Dims()
	if n == 0 {
		return errors.New("solver: training set is empty")
	}
	if len(yTrain) != n {
		return errors.New("solver: training labels do not match training set size")
	}

	batchSize := s.cfg.BatchSize
	if batchSize > n {
		batchSize = n
	}
	stepsPerEpoch := n / batchSize

	var window metrics.Window
	globalStep := 0

	for epoch := 1; epoch <= s.cfg.Epochs; epoch++ {
		perm := s.rng.Perm(n)

		for step := 0; step < stepsPerEpoch; step++ {
			idx := perm[step*batchSize : (step+1)*batchSize]
			xBatch := rowsAt(xTrain, idx)
			yBatch := labelsAt(yTrain, idx)

			start := time.Now()
			loss, grads, err := s.model.Loss(xBatch, yBatch)
			if err != nil {
				return err
			}
			s.opt.Step(grads)
			window.Record(batchSize, time.Since(start), loss)

			s.LossHistory = append(s.LossHistory, loss)
			globalStep++

			if !s.cfg.Quiet && s.cfg.LogEvery > 0 && globalStep%s.cfg.LogEvery == 0 {
				snap := window.Snapshot()
				log.Printf("epoch=%d step=%d loss=%.4f examples_per_sec=%.1f step_ms=%.2f",
					epoch, globalStep, snap.LastLoss, snap.ExamplesPerSec, snap.AvgStepMS)
			}
		}

		trainAcc, err := s.accuracy(xTrain, yTrain)
		if err != nil {
			return err
		}
		s.TrainAccHistory = append(s.TrainAccHistory, trainAcc)

		valAcc := 0.0
		if xVal != nil {
			valAcc, err = s.accuracy(xVal, yVal)
			if err != nil {
				return err
			}
			s.ValAccHistory = append(s.ValAccHistory, valAcc)
		}

		if !s.cfg.Quiet {
			if xVal != nil {
				log.Printf("epoch=%d done train_acc=%.4f val_acc=%.4f", epoch, trainAcc, valAcc)
			} else {
				log.Printf("epoch=%d done train_acc=%.4f", epoch, trainAcc)
			}
		}
	}

	return nil
}

// accuracy evaluates classification accuracy on up to EvalSize
// examples sampled without replacement.
func (s *Solver) accuracy(x *mat.Dense, y []int) (float64, error) {
	n, _ := x.Dims()
	if len(y) != n {
		return 0, errors.New("solver: labels do not match data size")
	}

	if n > s.cfg.EvalSize {
		idx := s.rng.Perm(n)[:s.cfg.EvalSize]
		x = rowsAt(x, idx)
		y = labelsAt(y, idx)
	}

	scores, err := s.model.Forward(x)
	if err != nil {
		return 0, err
	}
	return nn.Accuracy(scores, y), nil
}

// rowsAt gathers the given rows of x into a fresh matrix.
func rowsAt(x *mat.Dense, idx []int) *mat.Dense {
	_, d := x.Dims()
	out := mat.NewDense(len(idx), d, nil)
	for i, row := range idx {
		out.SetRow(i, x.RawRowView(row))
	}
	return out
}

// labelsAt gathers the given entries of y.
func labelsAt(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, row := range idx {
		out[i] = y[row]
	}
	return out
}
