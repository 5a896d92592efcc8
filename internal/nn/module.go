// Package nn implements the building blocks for fully-connected
// classification networks:
//   - Parameter: named, trainable tensors
//   - Softmax loss: numerically stable cross-entropy loss and gradient
//   - Layer primitives: affine, ReLU, batch normalization, dropout
//   - Models: TwoLayerNet and FullyConnectedNet
//
// Design inspired by PyTorch's nn.Module but built on gonum matrices.
//
// All computations are single-threaded and synchronous. A model's
// parameters are mutated only by an optimizer between Loss calls,
// never by the forward/backward passes themselves.
package nn

// Mode selects training or inference behavior for layers that act
// differently between the two (batch normalization, dropout).
//
// The mode is passed explicitly through forward passes rather than
// stored as mutable model state, so a single model value can serve
// interleaved training and inference calls without toggling.
type Mode int

const (
	// ModeTrain uses per-batch statistics for batch normalization and
	// applies dropout masks.
	ModeTrain Mode = iota

	// ModeTest uses running statistics for batch normalization and
	// disables dropout.
	ModeTest
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeTest:
		return "test"
	default:
		return "unknown"
	}
}
