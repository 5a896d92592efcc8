package optim

import (
	"math"

	"github.com/fcnet-ml/fcnet/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// RMSProp implements the RMSProp optimizer.
//
// RMSProp keeps a moving average of squared gradients and divides the
// gradient by its root, so each parameter gets an effective learning
// rate inversely proportional to its recent gradient magnitude.
//
// Update rule:
//
//	cache = decay * cache + (1-decay) * gradient²
//	param = param - lr * gradient / (sqrt(cache) + eps)
type RMSProp struct {
	lr    float64
	decay float64
	eps   float64
	cache map[*nn.Parameter]*mat.Dense
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
type RMSPropConfig struct {
	LR    float64 // Learning rate (default: 0.01)
	Decay float64 // Decay rate of the squared-gradient average (default: 0.99)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Decay == 0 {
		config.Decay = 0.99
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSProp{
		lr:    config.LR,
		decay: config.Decay,
		eps:   config.Eps,
		cache: make(map[*nn.Parameter]*mat.Dense),
	}
}

// Step applies one RMSProp update to every parameter in the gradient map.
func (r *RMSProp) Step(grads map[*nn.Parameter]*mat.Dense) {
	for param, grad := range grads {
		cache, ok := r.cache[param]
		if !ok {
			cache = zerosLike(grad)
			r.cache[param] = cache
		}

		cacheData := cache.RawMatrix().Data
		gradData := grad.RawMatrix().Data
		paramData := param.Value().RawMatrix().Data
		for i := range cacheData {
			cacheData[i] = r.decay*cacheData[i] + (1-r.decay)*gradData[i]*gradData[i]
			paramData[i] -= r.lr * gradData[i] / (math.Sqrt(cacheData[i]) + r.eps)
		}
	}
}

// LR returns the current learning rate.
func (r *RMSProp) LR() float64 {
	return r.lr
}

// SetLR updates the learning rate.
func (r *RMSProp) SetLR(lr float64) {
	r.lr = lr
}
