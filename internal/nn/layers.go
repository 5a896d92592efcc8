package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layer primitives. Each forward returns its output together with an
// opaque cache holding the intermediates the matching backward needs.
// A cache belongs to the forward invocation that produced it and must
// be consumed exactly once, by the backward step of the same loss
// call; caches are never part of persistent model state.

// AffineCache holds forward-pass intermediates for AffineBackward.
type AffineCache struct {
	x *mat.Dense
	w *mat.Dense
}

// AffineForward computes the affine transform out = x·w + b.
//
// Parameters:
//   - x: Input with shape [N, D]
//   - w: Weights with shape [D, M]
//   - b: Bias with shape [1, M], broadcast across rows
//
// Returns the [N, M] output and a cache for the backward pass.
func AffineForward(x, w, b *mat.Dense) (*mat.Dense, *AffineCache, error) {
	n, d := x.Dims()
	wd, m := w.Dims()
	if d != wd {
		return nil, nil, &ShapeError{
			Op:   "AffineForward",
			Want: fmt.Sprintf("x with %d features", wd),
			Got:  fmt.Sprintf("%d features", d),
		}
	}

	out := mat.NewDense(n, m, nil)
	out.Mul(x, w)

	bias := b.RawRowView(0)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}

	return out, &AffineCache{x: x, w: w}, nil
}

// AffineBackward computes gradients of the affine transform.
//
// Given the upstream gradient dout with shape [N, M], returns:
//   - dx: [N, D] gradient with respect to the input
//   - dw: [D, M] gradient with respect to the weights
//   - db: [1, M] gradient with respect to the bias
func AffineBackward(dout *mat.Dense, cache *AffineCache) (dx, dw, db *mat.Dense) {
	n, m := dout.Dims()
	_, d := cache.x.Dims()

	dx = mat.NewDense(n, d, nil)
	dx.Mul(dout, cache.w.T())

	dw = mat.NewDense(d, m, nil)
	dw.Mul(cache.x.T(), dout)

	db = mat.NewDense(1, m, nil)
	dbRow := db.RawRowView(0)
	for i := 0; i < n; i++ {
		row := dout.RawRowView(i)
		for j := range row {
			dbRow[j] += row[j]
		}
	}

	return dx, dw, db
}

// ReLUCache holds the forward input for ReLUBackward.
type ReLUCache struct {
	x *mat.Dense
}

// ReLUForward applies the rectifier out = max(0, x) elementwise.
func ReLUForward(x *mat.Dense) (*mat.Dense, *ReLUCache) {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	outData := out.RawMatrix().Data

	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j, v := range row {
			if v > 0 {
				outData[i*d+j] = v
			}
		}
	}

	return out, &ReLUCache{x: x}
}

// ReLUBackward passes the upstream gradient through where the forward
// input was positive and zeroes it elsewhere.
func ReLUBackward(dout *mat.Dense, cache *ReLUCache) *mat.Dense {
	n, d := dout.Dims()
	dx := mat.NewDense(n, d, nil)

	for i := 0; i < n; i++ {
		xRow := cache.x.RawRowView(i)
		doutRow := dout.RawRowView(i)
		dxRow := dx.RawRowView(i)
		for j := range dxRow {
			if xRow[j] > 0 {
				dxRow[j] = doutRow[j]
			}
		}
	}

	return dx
}

// AffineReLUCache bundles the caches of the fused affine-ReLU step.
type AffineReLUCache struct {
	affine *AffineCache
	relu   *ReLUCache
}

// AffineReLUForward is the convenience composition of an affine
// transform followed by a ReLU, the hidden-layer step of a
// fully-connected net.
func AffineReLUForward(x, w, b *mat.Dense) (*mat.Dense, *AffineReLUCache, error) {
	a, ac, err := AffineForward(x, w, b)
	if err != nil {
		return nil, nil, err
	}
	out, rc := ReLUForward(a)
	return out, &AffineReLUCache{affine: ac, relu: rc}, nil
}

// AffineReLUBackward backpropagates through the fused affine-ReLU step.
func AffineReLUBackward(dout *mat.Dense, cache *AffineReLUCache) (dx, dw, db *mat.Dense) {
	da := ReLUBackward(dout, cache.relu)
	return AffineBackward(da, cache.affine)
}
