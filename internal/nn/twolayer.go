package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

// TwoLayerNet is a two-layer fully-connected classification network
// with a ReLU nonlinearity and softmax loss:
//
//	affine - ReLU - affine - softmax
//
// The net does not perform gradient descent itself; an optimizer
// consumes the gradient map returned by Loss and updates the
// parameters between calls.
type TwoLayerNet struct {
	inputDim   int
	hiddenDim  int
	numClasses int
	reg        float64

	w1, b1 *Parameter // inputDim×hiddenDim, 1×hiddenDim
	w2, b2 *Parameter // hiddenDim×numClasses, 1×numClasses
}

// TwoLayerConfig holds construction options for TwoLayerNet.
type TwoLayerConfig struct {
	InputDim    int
	HiddenDim   int
	NumClasses  int
	WeightScale float64 // Std dev of gaussian weight init (default: 1e-3)
	Reg         float64 // L2 regularization strength
	Seed        uint64  // Seed for weight initialization
}

// NewTwoLayerNet creates a two-layer net with gaussian-initialized
// weights and zero biases.
func NewTwoLayerNet(cfg TwoLayerConfig) (*TwoLayerNet, error) {
	if cfg.InputDim <= 0 || cfg.HiddenDim <= 0 || cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("NewTwoLayerNet: %w: dimensions must be positive, got input=%d hidden=%d classes=%d",
			ErrInvalidConfig, cfg.InputDim, cfg.HiddenDim, cfg.NumClasses)
	}
	if cfg.Reg < 0 {
		return nil, fmt.Errorf("NewTwoLayerNet: %w: reg must be non-negative, got %g", ErrInvalidConfig, cfg.Reg)
	}
	if cfg.WeightScale == 0 {
		cfg.WeightScale = 1e-3
	}

	src := rand.NewSource(cfg.Seed)
	return &TwoLayerNet{
		inputDim:   cfg.InputDim,
		hiddenDim:  cfg.HiddenDim,
		numClasses: cfg.NumClasses,
		reg:        cfg.Reg,
		w1:         NewParameter("layer1.weight", Gaussian(cfg.InputDim, cfg.HiddenDim, cfg.WeightScale, src)),
		b1:         NewParameter("layer1.bias", Zeros(1, cfg.HiddenDim)),
		w2:         NewParameter("layer2.weight", Gaussian(cfg.HiddenDim, cfg.NumClasses, cfg.WeightScale, src)),
		b2:         NewParameter("layer2.bias", Zeros(1, cfg.NumClasses)),
	}, nil
}

// Parameters returns the trainable parameters in layer order.
func (net *TwoLayerNet) Parameters() []*Parameter {
	return []*Parameter{net.w1, net.b1, net.w2, net.b2}
}

func (net *TwoLayerNet) checkInput(op string, x *mat.Dense) (int, error) {
	n, d := x.Dims()
	if d != net.inputDim {
		return 0, &ShapeError{
			Op:   op,
			Want: fmt.Sprintf("[N, %d] input", net.inputDim),
			Got:  fmt.Sprintf("[%d, %d]", n, d),
		}
	}
	return n, nil
}

// Forward runs an inference-mode forward pass and returns the raw
// class scores with shape [N, numClasses].
//
// Scores do not depend on the regularization strength; reg affects
// only Loss and the gradients.
func (net *TwoLayerNet) Forward(x *mat.Dense) (*mat.Dense, error) {
	if _, err := net.checkInput("TwoLayerNet.Forward", x); err != nil {
		return nil, err
	}

	hidden, _, err := AffineReLUForward(x, net.w1.Value(), net.b1.Value())
	if err != nil {
		return nil, err
	}
	scores, _, err := AffineForward(hidden, net.w2.Value(), net.b2.Value())
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// Loss runs a training-mode forward and backward pass.
//
// Returns the total loss (softmax data loss plus L2 penalty on both
// weight matrices) and a gradient map with exactly one entry per
// parameter. The gradient map is valid only for this call; the
// parameters themselves are not modified.
func (net *TwoLayerNet) Loss(x *mat.Dense, y []int) (float64, map[*Parameter]*mat.Dense, error) {
	n, err := net.checkInput("TwoLayerNet.Loss", x)
	if err != nil {
		return 0, nil, err
	}
	if len(y) != n {
		return 0, nil, &ShapeError{
			Op:   "TwoLayerNet.Loss",
			Want: fmt.Sprintf("%d labels", n),
			Got:  fmt.Sprintf("%d labels", len(y)),
		}
	}

	hidden, hiddenCache, err := AffineReLUForward(x, net.w1.Value(), net.b1.Value())
	if err != nil {
		return 0, nil, err
	}
	scores, scoresCache, err := AffineForward(hidden, net.w2.Value(), net.b2.Value())
	if err != nil {
		return 0, nil, err
	}

	loss, dscores, err := SoftmaxLoss(scores, y)
	if err != nil {
		return 0, nil, err
	}
	loss += l2Penalty(net.reg, net.w1.Value(), net.w2.Value())

	dhidden, dw2, db2 := AffineBackward(dscores, scoresCache)
	addScaled(dw2, net.reg, net.w2.Value())

	_, dw1, db1 := AffineReLUBackward(dhidden, hiddenCache)
	addScaled(dw1, net.reg, net.w1.Value())

	grads := map[*Parameter]*mat.Dense{
		net.w1: dw1,
		net.b1: db1,
		net.w2: dw2,
		net.b2: db2,
	}
	return loss, grads, nil
}

// l2Penalty returns 0.5*reg*Σw² summed over the given weight matrices.
func l2Penalty(reg float64, weights ...*mat.Dense) float64 {
	if reg == 0 {
		return 0
	}
	total := 0.0
	for _, w := range weights {
		var sq mat.Dense
		sq.MulElem(w, w)
		total += mat.Sum(&sq)
	}
	return 0.5 * reg * total
}

// addScaled adds scale*src to dst in place; a no-op when scale is 0.
func addScaled(dst *mat.Dense, scale float64, src *mat.Dense) {
	if scale == 0 {
		return
	}
	var scaled mat.Dense
	scaled.Scale(scale, src)
	dst.Add(dst, &scaled)
}
