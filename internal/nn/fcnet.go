package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

// FullyConnectedNet is a fully-connected classification network with
// an arbitrary number of hidden layers, ReLU nonlinearities, and a
// softmax loss. Batch normalization and dropout are optional. For a
// network with L layers the architecture is
//
//	{affine - [batch norm] - ReLU - [dropout]} × (L-1) - affine - softmax
//
// Parameters are held in per-layer structs addressed by layer index;
// there are no string-keyed lookups anywhere in the forward or
// backward path.
type FullyConnectedNet struct {
	dims    []int // [inputDim, hidden..., numClasses], len L+1
	reg     float64
	dropout float64 // probability of zeroing an activation; 0 disables
	useBN   bool

	layers   []LayerParams     // len L
	bnStates []*BatchNormState // len L-1 when useBN, nil otherwise
	src      rand.Source       // dropout mask source
}

// LayerParams groups the learnable parameters of one layer. Gamma
// and Beta are nil except on hidden layers of a batch-norm network.
type LayerParams struct {
	Weight *Parameter
	Bias   *Parameter
	Gamma  *Parameter
	Beta   *Parameter
}

// FCNetConfig holds construction options for FullyConnectedNet.
type FCNetConfig struct {
	InputDim    int
	HiddenDims  []int // Sizes of the hidden layers; may be empty for a linear classifier
	NumClasses  int
	WeightScale float64 // Std dev of gaussian weight init (default: 1e-2)
	Reg         float64 // L2 regularization strength
	Dropout     float64 // Probability of zeroing an activation, in [0, 1); 0 disables
	BatchNorm   bool    // Insert batch normalization before each ReLU
	Seed        uint64  // Seed for weight init and dropout masks
}

// NewFullyConnectedNet creates a network with gaussian-initialized
// weights, zero biases, and (with batch norm) unit scales and zero
// shifts.
func NewFullyConnectedNet(cfg FCNetConfig) (*FullyConnectedNet, error) {
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("NewFullyConnectedNet: %w: input dim must be positive, got %d", ErrInvalidConfig, cfg.InputDim)
	}
	if cfg.NumClasses <= 0 {
		return nil, fmt.Errorf("NewFullyConnectedNet: %w: num classes must be positive, got %d", ErrInvalidConfig, cfg.NumClasses)
	}
	for i, h := range cfg.HiddenDims {
		if h <= 0 {
			return nil, fmt.Errorf("NewFullyConnectedNet: %w: hidden dim %d must be positive, got %d", ErrInvalidConfig, i, h)
		}
	}
	if cfg.Reg < 0 {
		return nil, fmt.Errorf("NewFullyConnectedNet: %w: reg must be non-negative, got %g", ErrInvalidConfig, cfg.Reg)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("NewFullyConnectedNet: %w: dropout must be in [0, 1), got %g", ErrInvalidConfig, cfg.Dropout)
	}
	if cfg.WeightScale == 0 {
		cfg.WeightScale = 1e-2
	}

	dims := make([]int, 0, len(cfg.HiddenDims)+2)
	dims = append(dims, cfg.InputDim)
	dims = append(dims, cfg.HiddenDims...)
	dims = append(dims, cfg.NumClasses)
	numLayers := len(dims) - 1

	src := rand.NewSource(cfg.Seed)
	net := &FullyConnectedNet{
		dims:    dims,
		reg:     cfg.Reg,
		dropout: cfg.Dropout,
		useBN:   cfg.BatchNorm,
		layers:  make([]LayerParams, numLayers),
		src:     src,
	}

	for l := 0; l < numLayers; l++ {
		in, out := dims[l], dims[l+1]
		layer := LayerParams{
			Weight: NewParameter(fmt.Sprintf("layer%d.weight", l+1), Gaussian(in, out, cfg.WeightScale, src)),
			Bias:   NewParameter(fmt.Sprintf("layer%d.bias", l+1), Zeros(1, out)),
		}
		// Scale and shift only on hidden layers; the score layer has
		// no normalization.
		if cfg.BatchNorm && l < numLayers-1 {
			layer.Gamma = NewParameter(fmt.Sprintf("layer%d.gamma", l+1), Ones(1, out))
			layer.Beta = NewParameter(fmt.Sprintf("layer%d.beta", l+1), Zeros(1, out))
		}
		net.layers[l] = layer
	}

	if cfg.BatchNorm {
		net.bnStates = make([]*BatchNormState, numLayers-1)
		for l := range net.bnStates {
			net.bnStates[l] = NewBatchNormState(dims[l+1])
		}
	}

	return net, nil
}

// NumLayers returns the layer count L.
func (net *FullyConnectedNet) NumLayers() int {
	return len(net.layers)
}

// Layer returns the parameters of layer l (0-based).
func (net *FullyConnectedNet) Layer(l int) LayerParams {
	return net.layers[l]
}

// Parameters returns all trainable parameters in layer order.
func (net *FullyConnectedNet) Parameters() []*Parameter {
	params := make([]*Parameter, 0, 4*len(net.layers))
	for _, layer := range net.layers {
		params = append(params, layer.Weight, layer.Bias)
		if layer.Gamma != nil {
			params = append(params, layer.Gamma, layer.Beta)
		}
	}
	return params
}

// hiddenCache bundles the per-layer caches of one hidden-layer step.
// The caches are produced in forward order and consumed exactly once,
// in reverse order, by the backward pass of the same Loss call.
type hiddenCache struct {
	affine *AffineCache
	bn     *BatchNormCache
	relu   *ReLUCache
	drop   *DropoutCache
}

func (net *FullyConnectedNet) checkInput(op string, x *mat.Dense) (int, error) {
	n, d := x.Dims()
	if d != net.dims[0] {
		return 0, &ShapeError{
			Op:   op,
			Want: fmt.Sprintf("[N, %d] input", net.dims[0]),
			Got:  fmt.Sprintf("[%d, %d]", n, d),
		}
	}
	return n, nil
}

// forward runs the layer stack, retaining caches for the backward
// pass. The returned slice has one cache per hidden layer; the final
// affine cache is returned separately.
func (net *FullyConnectedNet) forward(x *mat.Dense, mode Mode) (*mat.Dense, []*hiddenCache, *AffineCache, error) {
	numLayers := len(net.layers)
	caches := make([]*hiddenCache, numLayers-1)

	h := x
	for l := 0; l < numLayers-1; l++ {
		layer := net.layers[l]
		cache := &hiddenCache{}

		var err error
		h, cache.affine, err = AffineForward(h, layer.Weight.Value(), layer.Bias.Value())
		if err != nil {
			return nil, nil, nil, err
		}
		if net.useBN {
			h, cache.bn, err = BatchNormForward(h, layer.Gamma.Value(), layer.Beta.Value(), net.bnStates[l], mode)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		h, cache.relu = ReLUForward(h)
		if net.dropout > 0 {
			h, cache.drop = DropoutForward(h, net.dropout, mode, net.src)
		}
		caches[l] = cache
	}

	last := net.layers[numLayers-1]
	scores, scoresCache, err := AffineForward(h, last.Weight.Value(), last.Bias.Value())
	if err != nil {
		return nil, nil, nil, err
	}
	return scores, caches, scoresCache, nil
}

// Forward runs an inference-mode forward pass and returns the raw
// class scores with shape [N, numClasses]. Batch normalization uses
// running statistics and dropout is disabled.
func (net *FullyConnectedNet) Forward(x *mat.Dense) (*mat.Dense, error) {
	if _, err := net.checkInput("FullyConnectedNet.Forward", x); err != nil {
		return nil, err
	}
	scores, _, _, err := net.forward(x, ModeTest)
	return scores, err
}

// Loss runs a training-mode forward and backward pass.
//
// The softmax loss gradient is backpropagated through the layers in
// strict reverse order. Every weight gradient includes the reg*W
// penalty term; batch-norm scales and shifts are exempt from
// regularization. The returned gradient map has exactly one entry per
// learnable parameter and is valid only for this call.
func (net *FullyConnectedNet) Loss(x *mat.Dense, y []int) (float64, map[*Parameter]*mat.Dense, error) {
	n, err := net.checkInput("FullyConnectedNet.Loss", x)
	if err != nil {
		return 0, nil, err
	}
	if len(y) != n {
		return 0, nil, &ShapeError{
			Op:   "FullyConnectedNet.Loss",
			Want: fmt.Sprintf("%d labels", n),
			Got:  fmt.Sprintf("%d labels", len(y)),
		}
	}

	scores, caches, scoresCache, err := net.forward(x, ModeTrain)
	if err != nil {
		return 0, nil, err
	}

	loss, dscores, err := SoftmaxLoss(scores, y)
	if err != nil {
		return 0, nil, err
	}
	for _, layer := range net.layers {
		loss += l2Penalty(net.reg, layer.Weight.Value())
	}

	numLayers := len(net.layers)
	grads := make(map[*Parameter]*mat.Dense, 4*numLayers)

	last := net.layers[numLayers-1]
	dh, dw, db := AffineBackward(dscores, scoresCache)
	addScaled(dw, net.reg, last.Weight.Value())
	grads[last.Weight] = dw
	grads[last.Bias] = db

	for l := numLayers - 2; l >= 0; l-- {
		layer := net.layers[l]
		cache := caches[l]

		if net.dropout > 0 {
			dh = DropoutBackward(dh, cache.drop)
		}
		dh = ReLUBackward(dh, cache.relu)
		if net.useBN {
			var dgamma, dbeta *mat.Dense
			dh, dgamma, dbeta = BatchNormBackward(dh, cache.bn)
			grads[layer.Gamma] = dgamma
			grads[layer.Beta] = dbeta
		}
		dh, dw, db = AffineBackward(dh, cache.affine)
		addScaled(dw, net.reg, layer.Weight.Value())
		grads[layer.Weight] = dw
		grads[layer.Bias] = db
	}

	return loss, grads, nil
}
