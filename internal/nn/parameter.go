package nn

import "gonum.org/v1/gonum/mat"

// Parameter represents a trainable parameter of a model.
//
// Parameters are owned by the model that created them and persist
// across Loss calls. Gradients are not stored on the parameter:
// each Loss call returns a fresh gradient map keyed by *Parameter,
// valid only for that call. Keying by parameter identity (rather
// than by constructed string names) makes it impossible for an
// optimizer to pair a gradient with the wrong tensor.
//
// Example:
//
//	weight := nn.NewParameter("layer1.weight", w)
//	loss, grads, err := model.Loss(x, y)
//	dw := grads[weight] // same shape as weight.Value()
type Parameter struct {
	name  string
	value *mat.Dense
}

// NewParameter creates a trainable parameter.
//
// The value should be initialized before creating the Parameter.
// Bias, scale, and shift vectors are stored as 1×D matrices so that
// every parameter and gradient shares the *mat.Dense representation.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name, e.g. "layer2.bias". Names are
// descriptive only; lookups always go through the pointer itself.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor. Optimizers update it in place.
func (p *Parameter) Value() *mat.Dense {
	return p.value
}
