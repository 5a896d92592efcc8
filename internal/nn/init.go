package nn

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian creates an r×c matrix with entries drawn independently
// from N(0, scale²).
//
// This is the standard initialization for the weight matrices of
// small fully-connected networks: zero-mean draws scaled down so
// early activations stay in the linear regime.
func Gaussian(r, c int, scale float64, src rand.Source) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	w := mat.NewDense(r, c, nil)
	data := w.RawMatrix().Data
	for i := range data {
		data[i] = scale * normal.Rand()
	}
	return w
}

// Zeros creates an r×c matrix filled with zeros.
//
// This is used for bias and shift initialization.
func Zeros(r, c int) *mat.Dense {
	return mat.NewDense(r, c, nil)
}

// Ones creates an r×c matrix filled with ones.
//
// This is used for batch-norm scale initialization.
func Ones(r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = 1
	}
	return m
}
