// Package optim implements first-order update rules for training
// the networks in internal/nn.
//
// This package provides:
//   - Optimizer interface: common surface for all update rules
//   - SGD: stochastic gradient descent with optional momentum
//   - RMSProp: moving average of squared gradients
//   - Adam: adaptive moment estimation with bias correction
//
// Design inspired by PyTorch's torch.optim.
//
// Example usage:
//
//	optimizer := optim.NewSGD(optim.SGDConfig{LR: 1e-2, Momentum: 0.9})
//
//	for epoch := 0; epoch < epochs; epoch++ {
//	    loss, grads, err := model.Loss(x, y)
//	    if err != nil {
//	        return err
//	    }
//	    optimizer.Step(grads)
//	}
package optim

import (
	"github.com/fcnet-ml/fcnet/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// Optimizer is the base interface for all update rules.
//
// An optimizer consumes the gradient map produced by a model's Loss
// call and updates each parameter in place. The gradient map is keyed
// by parameter identity, so an optimizer can never pair a gradient
// with the wrong tensor. Per-parameter optimizer state (velocities,
// moment estimates) is keyed the same way and created lazily on the
// first Step that sees a parameter.
type Optimizer interface {
	// Step applies one gradient update to every parameter in the map.
	Step(grads map[*nn.Parameter]*mat.Dense)

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate, for scheduling during training.
	SetLR(lr float64)
}

// step applies param -= lr * update in place.
func step(param *nn.Parameter, lr float64, update *mat.Dense) {
	var scaled mat.Dense
	scaled.Scale(lr, update)
	param.Value().Sub(param.Value(), &scaled)
}

// zerosLike allocates a zero matrix with the shape of m.
func zerosLike(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, nil)
}
