package optim

import (
	"github.com/fcnet-ml/fcnet/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Momentum accelerates descent in consistent directions and dampens
// oscillations.
type SGD struct {
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter]*mat.Dense
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter]*mat.Dense),
	}
}

// Step applies one SGD update to every parameter in the gradient map.
func (s *SGD) Step(grads map[*nn.Parameter]*mat.Dense) {
	for param, grad := range grads {
		if s.momentum == 0 {
			step(param, s.lr, grad)
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = zerosLike(grad)
			s.velocities[param] = velocity
		}

		// velocity = momentum*velocity + grad
		velocity.Scale(s.momentum, velocity)
		velocity.Add(velocity, grad)

		step(param, s.lr, velocity)
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
