// Package num contains the dense matrix routines used to build and train
// networks. All compute is on the CPU via gonum; matrices are laid out with
// one row per example and one column per feature.
package num

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Random returns a rows x cols matrix with entries drawn from rng and scaled
// by scale. If normal is set entries are normally distributed, else uniform
// in [0, scale).
func Random(rows, cols int, scale float64, normal bool, rng *rand.Rand) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		if normal {
			data[i] = rng.NormFloat64() * scale
		} else {
			data[i] = rng.Float64() * scale
		}
	}
	return mat.NewDense(rows, cols, data)
}

// Zeros returns a rows x cols matrix of zeros.
func Zeros(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}

// Fill sets every element of m to val.
func Fill(m *mat.Dense, val float64) {
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = val
	}
}

// Axpy updates y += alpha*x. x and y must have the same shape.
func Axpy(alpha float64, x, y *mat.Dense) {
	xd := x.RawMatrix().Data
	yd := y.RawMatrix().Data
	for i := range yd {
		yd[i] += alpha * xd[i]
	}
}

// Linear computes dst = x*w then adds the bias row vector b to each row.
func Linear(x, w, b *mat.Dense, dst *mat.Dense) {
	dst.Mul(x, w)
	AddRow(dst, b)
}

// AddRow adds the 1 x cols row vector to every row of m.
func AddRow(m, row *mat.Dense) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, m.At(i, j)+row.At(0, j))
		}
	}
}

// ColSums writes the sum of each column of m into the 1 x cols vector dst.
func ColSums(m, dst *mat.Dense) {
	rows, cols := m.Dims()
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		dst.Set(0, j, sum)
	}
}

// ColMeanVar returns the per column mean and biased variance of m.
func ColMeanVar(m *mat.Dense) (mean, variance []float64) {
	rows, cols := m.Dims()
	mean = make([]float64, cols)
	variance = make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		mean[j] = sum / float64(rows)
		ssq := 0.0
		for i := 0; i < rows; i++ {
			d := m.At(i, j) - mean[j]
			ssq += d * d
		}
		variance[j] = ssq / float64(rows)
	}
	return mean, variance
}

// Apply sets dst[i,j] = f(src[i,j]). src and dst may be the same matrix.
func Apply(f func(float64) float64, src, dst *mat.Dense) {
	sd := src.RawMatrix().Data
	dd := dst.RawMatrix().Data
	for i := range dd {
		dd[i] = f(sd[i])
	}
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Elu is the exponential linear unit: identity for positive inputs and a
// saturating exponential for negative ones, with a continuous first
// derivative at zero.
func Elu(x float64) float64 {
	if x > 0 {
		return x
	}
	return math.Exp(x) - 1
}

// EluD is the derivative of Elu with respect to its input.
func EluD(x float64) float64 {
	if x > 0 {
		return 1
	}
	return math.Exp(x)
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FiniteMat reports whether every element of m is finite.
func FiniteMat(m *mat.Dense) bool {
	for _, v := range m.RawMatrix().Data {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// Clone returns a copy of m.
func Clone(m *mat.Dense) *mat.Dense {
	return mat.DenseCopyOf(m)
}
