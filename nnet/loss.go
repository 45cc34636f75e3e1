package nnet

import (
	"math"

	"github.com/willbrasic/adultnet/num"
	"gonum.org/v1/gonum/mat"
)

// bceWithLogits returns the mean binary cross entropy over the batch,
// computed directly from the logits so large magnitudes cannot overflow:
//
//	loss(z, y) = max(z, 0) - z*y + log(1 + exp(-|z|))
//
// If grad is non-nil the loss gradient with respect to each logit,
// (sigmoid(z) - y) / n, is written into it.
func bceWithLogits(logits *mat.Dense, y []float64, grad *mat.Dense) float64 {
	n := len(y)
	sum := 0.0
	for i := 0; i < n; i++ {
		z := logits.At(i, 0)
		sum += math.Max(z, 0) - z*y[i] + math.Log1p(math.Exp(-math.Abs(z)))
		if grad != nil {
			grad.Set(i, 0, (num.Sigmoid(z)-y[i])/float64(n))
		}
	}
	return sum / float64(n)
}

// predictLabel thresholds one logit at probability 0.5.
func predictLabel(z float64) int {
	if num.Sigmoid(z) >= 0.5 {
		return 1
	}
	return 0
}
