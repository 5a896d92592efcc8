package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxLoss computes the mean softmax cross-entropy loss over a
// mini-batch of class scores, together with its gradient with respect
// to the scores.
//
// This implementation uses the log-sum-exp decomposition for numerical
// stability: each row of scores is shifted by its own maximum before
// exponentiating, which leaves the softmax probabilities unchanged but
// prevents overflow for large scores. The shift is per row; a single
// global shift would be correct for overflow avoidance but less robust
// when rows have very different scales.
//
// Mathematical formulation, per example i:
//
//	loss_i = -scores[i, y[i]] + log Σ_j exp(scores[i, j])
//	dscores[i, j] = (softmax(scores[i])[j] - 1{j == y[i]}) / N
//
// Parameters:
//   - scores: Unnormalized class scores with shape [N, C]
//   - labels: Ground-truth class indices, length N, values in [0, C)
//
// Returns the scalar mean loss and the [N, C] gradient. Fails with
// ErrEmptyBatch when N == 0, ErrShapeMismatch when len(labels) != N,
// ErrLabelOutOfRange for invalid labels, and ErrNonFinite if the loss
// comes out NaN or Inf despite the shift.
func SoftmaxLoss(scores *mat.Dense, labels []int) (float64, *mat.Dense, error) {
	n, c := scores.Dims()
	if n == 0 {
		return 0, nil, fmt.Errorf("SoftmaxLoss: %w", ErrEmptyBatch)
	}
	if len(labels) != n {
		return 0, nil, &ShapeError{
			Op:   "SoftmaxLoss",
			Want: fmt.Sprintf("%d labels", n),
			Got:  fmt.Sprintf("%d labels", len(labels)),
		}
	}

	dscores := mat.NewDense(n, c, nil)
	total := 0.0

	for i := 0; i < n; i++ {
		label := labels[i]
		if label < 0 || label >= c {
			return 0, nil, fmt.Errorf("SoftmaxLoss: example %d: %w: %d not in [0, %d)",
				i, ErrLabelOutOfRange, label, c)
		}

		row := scores.RawRowView(i)
		grad := dscores.RawRowView(i)

		// Shift by the row maximum before exponentiating.
		maxScore := floats.Max(row)
		sumExp := 0.0
		for j, s := range row {
			e := math.Exp(s - maxScore)
			grad[j] = e
			sumExp += e
		}

		// loss_i = -(s_y - max) + log Σ exp(s_j - max)
		total += -(row[label] - maxScore) + math.Log(sumExp)

		// dscores_i = (probs - onehot) / N
		for j := range grad {
			grad[j] /= sumExp
			if j == label {
				grad[j] -= 1.0
			}
			grad[j] /= float64(n)
		}
	}

	loss := total / float64(n)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, nil, fmt.Errorf("SoftmaxLoss: %w", ErrNonFinite)
	}

	return loss, dscores, nil
}

// ClassifierLoss computes the softmax loss and weight gradient for a
// plain linear classifier with scores x·w.
//
// Parameters:
//   - w: Weight matrix with shape [D, C]
//   - x: Mini-batch of data with shape [N, D]
//   - y: Labels, length N
//   - reg: L2 regularization strength; 0 disables the penalty
//
// Returns the total loss (data loss plus 0.5*reg*Σw²) and the
// gradient dL/dw with shape [D, C], including the reg*w term.
func ClassifierLoss(w, x *mat.Dense, y []int, reg float64) (float64, *mat.Dense, error) {
	n, d := x.Dims()
	wd, c := w.Dims()
	if d != wd {
		return 0, nil, &ShapeError{
			Op:   "ClassifierLoss",
			Want: fmt.Sprintf("x with %d features", wd),
			Got:  fmt.Sprintf("%d features", d),
		}
	}

	scores := mat.NewDense(n, c, nil)
	scores.Mul(x, w)

	loss, dscores, err := SoftmaxLoss(scores, y)
	if err != nil {
		return 0, nil, err
	}

	// Backpropagate through the affine map: dw = xᵀ·dscores.
	dw := mat.NewDense(wd, c, nil)
	dw.Mul(x.T(), dscores)

	if reg != 0 {
		var sq mat.Dense
		sq.MulElem(w, w)
		loss += 0.5 * reg * mat.Sum(&sq)

		var penalty mat.Dense
		penalty.Scale(reg, w)
		dw.Add(dw, &penalty)
	}

	return loss, dw, nil
}

// Accuracy computes classification accuracy for a batch.
//
// Parameters:
//   - scores: Model predictions with shape [N, C]
//   - labels: Ground-truth class indices, length N
//
// Returns the fraction of examples whose argmax score matches the label.
func Accuracy(scores *mat.Dense, labels []int) float64 {
	n, _ := scores.Dims()
	if n == 0 || len(labels) != n {
		return 0
	}

	correct := 0
	for i := 0; i < n; i++ {
		if argmax(scores.RawRowView(i)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float64) int {
	maxIdx := 0
	maxVal := z[0]
	for i := 1; i < len(z); i++ {
		if z[i] > maxVal {
			maxVal = z[i]
			maxIdx = i
		}
	}
	return maxIdx
}
