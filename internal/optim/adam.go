package optim

import (
	"math"

	"github.com/fcnet-ml/fcnet/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSProp and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for zero initialization
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014).
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int // timestep for bias correction
	m     map[*nn.Parameter]*mat.Dense
	v     map[*nn.Parameter]*mat.Dense
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving-average coefficients (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		m:     make(map[*nn.Parameter]*mat.Dense),
		v:     make(map[*nn.Parameter]*mat.Dense),
	}
}

// Step applies one Adam update to every parameter in the gradient map.
//
// The timestep advances once per Step call, not per parameter, so all
// parameters share the same bias correction.
func (a *Adam) Step(grads map[*nn.Parameter]*mat.Dense) {
	a.t++
	mCorr := 1 - math.Pow(a.beta1, float64(a.t))
	vCorr := 1 - math.Pow(a.beta2, float64(a.t))

	for param, grad := range grads {
		m, ok := a.m[param]
		if !ok {
			m = zerosLike(grad)
			a.m[param] = m
			a.v[param] = zerosLike(grad)
		}
		v := a.v[param]

		mData := m.RawMatrix().Data
		vData := v.RawMatrix().Data
		gradData := grad.RawMatrix().Data
		paramData := param.Value().RawMatrix().Data
		for i := range gradData {
			g := gradData[i]
			mData[i] = a.beta1*mData[i] + (1-a.beta1)*g
			vData[i] = a.beta2*vData[i] + (1-a.beta2)*g*g
			mHat := mData[i] / mCorr
			vHat := vData[i] / vCorr
			paramData[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}
