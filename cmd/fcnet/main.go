// Command fcnet trains a fully-connected softmax classifier on MNIST.
//
// The MNIST archive files (train-images-idx3-ubyte.gz and friends)
// must be present in the directory given by -data.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/petar/GoMNIST"

	"github.com/fcnet-ml/fcnet/internal/nn"
	"github.com/fcnet-ml/fcnet/internal/optim"
	"github.com/fcnet-ml/fcnet/internal/solver"
	"gonum.org/v1/gonum/mat"
)

func main() {
	dataDir := flag.String("data", "data", "Directory with the MNIST archive files")
	hidden := flag.String("hidden", "100", "Comma-separated hidden layer sizes")
	epochs := flag.Int("epochs", 10, "Number of training epochs")
	batchSize := flag.Int("batch-size", 100, "Mini-batch size")
	lr := flag.Float64("lr", 1e-3, "Learning rate")
	reg := flag.Float64("reg", 0, "L2 regularization strength")
	dropout := flag.Float64("dropout", 0, "Dropout probability (0 disables)")
	batchNorm := flag.Bool("batchnorm", false, "Use batch normalization")
	rule := flag.String("optimizer", "adam", "Update rule: sgd, momentum, rmsprop, adam")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 50, "Log every N steps")
	flag.Parse()

	hiddenDims, err := parseDims(*hidden)
	if err != nil {
		log.Fatalf("invalid -hidden: %v", err)
	}

	trainSet, testSet, err := GoMNIST.Load(*dataDir)
	if err != nil {
		log.Fatalf("failed to load MNIST from %s: %v", *dataDir, err)
	}

	xTrain, yTrain := toMatrix(trainSet)
	xTest, yTest := toMatrix(testSet)
	inputDim := trainSet.NRow * trainSet.NCol
	log.Printf("loaded MNIST train=%d test=%d features=%d", len(yTrain), len(yTest), inputDim)

	net, err := nn.NewFullyConnectedNet(nn.FCNetConfig{
		InputDim:   inputDim,
		HiddenDims: hiddenDims,
		NumClasses: 10,
		Reg:        *reg,
		Dropout:    *dropout,
		BatchNorm:  *batchNorm,
		Seed:       *seed,
	})
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}

	opt, err := newOptimizer(*rule, *lr)
	if err != nil {
		log.Fatalf("invalid -optimizer: %v", err)
	}

	s := solver.New(net, opt, solver.Config{
		Epochs:    *epochs,
		BatchSize: *batchSize,
		LogEvery:  *logEvery,
		Seed:      *seed,
	})
	if err := s.Train(xTrain, yTrain, xTest, yTest); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	scores, err := net.Forward(xTest)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	log.Printf("final test accuracy: %.4f", nn.Accuracy(scores, yTest))
}

// parseDims parses a comma-separated list of layer sizes.
func parseDims(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	dims := make([]int, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("layer size %q: %w", part, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// newOptimizer builds the requested update rule.
func newOptimizer(rule string, lr float64) (optim.Optimizer, error) {
	switch rule {
	case "sgd":
		return optim.NewSGD(optim.SGDConfig{LR: lr}), nil
	case "momentum":
		return optim.NewSGD(optim.SGDConfig{LR: lr, Momentum: 0.9}), nil
	case "rmsprop":
		return optim.NewRMSProp(optim.RMSPropConfig{LR: lr}), nil
	case "adam":
		return optim.NewAdam(optim.AdamConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("unknown update rule %q", rule)
	}
}

// toMatrix converts a GoMNIST set into a row-per-example matrix with
// pixel values scaled to [0, 1], plus an integer label slice.
func toMatrix(set *GoMNIST.Set) (*mat.Dense, []int) {
	n := len(set.Images)
	d := set.NRow * set.NCol

	x := mat.NewDense(n, d, nil)
	y := make([]int, n)
	for i, img := range set.Images {
		row := x.RawRowView(i)
		for j, px := range img {
			row[j] = float64(px) / 255.0
		}
		y[i] = int(set.Labels[i])
	}
	return x, y
}
