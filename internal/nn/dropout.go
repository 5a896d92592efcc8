package nn

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

// DropoutCache holds the scaled mask for DropoutBackward. For a
// ModeTest forward pass the mask is nil and backward is the identity.
type DropoutCache struct {
	mask *mat.Dense
}

// DropoutForward applies inverted dropout.
//
// p is the probability of zeroing each activation. In ModeTrain each
// element is kept with probability 1-p and scaled by 1/(1-p), so the
// expected activation is unchanged and test time needs no rescaling.
// In ModeTest the input passes through untouched.
//
// The caller supplies the random source; a model seeds one at
// construction so masks are reproducible for gradient checking.
func DropoutForward(x *mat.Dense, p float64, mode Mode, src rand.Source) (*mat.Dense, *DropoutCache) {
	if mode == ModeTest || p == 0 {
		return x, &DropoutCache{}
	}

	n, d := x.Dims()
	keep := 1 - p
	rng := rand.New(src)

	mask := mat.NewDense(n, d, nil)
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		xRow := x.RawRowView(i)
		maskRow := mask.RawRowView(i)
		outRow := out.RawRowView(i)
		for j := range xRow {
			if rng.Float64() < keep {
				maskRow[j] = 1 / keep
				outRow[j] = xRow[j] * maskRow[j]
			}
		}
	}

	return out, &DropoutCache{mask: mask}
}

// DropoutBackward backpropagates through the dropout mask.
func DropoutBackward(dout *mat.Dense, cache *DropoutCache) *mat.Dense {
	if cache.mask == nil {
		return dout
	}

	var dx mat.Dense
	dx.MulElem(dout, cache.mask)
	return &dx
}
