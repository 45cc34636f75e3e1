package nnet

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/willbrasic/adultnet/num"
	"gonum.org/v1/gonum/mat"
)

const (
	bnEpsilon  = 1e-5
	bnMomentum = 0.1
)

// Layer interface type represents one layer of the network. The train flag
// is threaded through every forward call: dropout and batch normalisation
// behave differently in training and evaluation, everything else ignores it.
type Layer interface {
	Init(nIn int, rng *rand.Rand) (nOut int)
	Fprop(x *mat.Dense, train bool) *mat.Dense
	Bprop(grad *mat.Dense) *mat.Dense
	ToString() string
}

// ParamLayer is a layer with parameters updated by the optimizer
type ParamLayer interface {
	Layer
	InitParams(scale float64, normal bool, rng *rand.Rand)
	Params() []Param
}

// Param pairs one parameter matrix with its gradient. Row vectors such as
// biases are stored as 1 x n matrices.
type Param struct {
	Value *mat.Dense
	Grad  *mat.Dense
}

// Layer configuration details
type LayerConfig struct {
	Type string
	Data json.RawMessage
}

type ConfigLayer interface {
	Marshal() LayerConfig
}

// Unmarshal JSON data and construct new layer
func (l LayerConfig) Unmarshal() Layer {
	switch l.Type {
	case "linear":
		cfg := new(Linear)
		unmarshal(l.Data, cfg)
		return &linear{Linear: *cfg}
	case "activation":
		cfg := new(Activation)
		unmarshal(l.Data, cfg)
		layer := &activation{Activation: *cfg}
		switch cfg.Atype {
		case "elu":
			layer.activ = num.Elu
			layer.deriv = num.EluD
		case "sigmoid":
			layer.activ = num.Sigmoid
			layer.deriv = func(x float64) float64 {
				s := num.Sigmoid(x)
				return s * (1 - s)
			}
		default:
			panic(fmt.Sprintf("activation type %s invalid", cfg.Atype))
		}
		return layer
	case "batchNorm":
		cfg := new(BatchNorm)
		unmarshal(l.Data, cfg)
		return &batchNorm{BatchNorm: *cfg}
	case "dropout":
		cfg := new(Dropout)
		unmarshal(l.Data, cfg)
		return &dropout{Dropout: *cfg}
	default:
		panic("invalid layer type: " + l.Type)
	}
}

func (l LayerConfig) String() string {
	return l.Unmarshal().ToString()
}

// Linear fully connected layer, implements ParamLayer interface.
type Linear struct {
	Nout int
}

func (c Linear) Marshal() LayerConfig {
	return LayerConfig{Type: "linear", Data: marshal(c)}
}

func (c Linear) ToString() string {
	return fmt.Sprintf("linear %+v", c)
}

// Elu or sigmoid activation layer.
type Activation struct {
	Atype string
}

func (c Activation) Marshal() LayerConfig {
	return LayerConfig{Type: "activation", Data: marshal(c)}
}

func (c Activation) ToString() string {
	return fmt.Sprintf("activation %+v", c)
}

// BatchNorm layer recentres and rescales activations using per batch
// statistics while training and a running estimate when evaluating.
type BatchNorm struct{}

func (c BatchNorm) Marshal() LayerConfig {
	return LayerConfig{Type: "batchNorm", Data: marshal(c)}
}

func (c BatchNorm) ToString() string {
	return "batchNorm"
}

// Dropout layer zeroes unit outputs with probability Prob during training
// and is the identity when evaluating.
type Dropout struct {
	Prob float64
}

func (c Dropout) Marshal() LayerConfig {
	return LayerConfig{Type: "dropout", Data: marshal(c)}
}

func (c Dropout) ToString() string {
	return fmt.Sprintf("dropout %+v", c)
}

// LinearClassifier is the layer stack for the plain model: two affine
// transforms with no activation and no regularization.
func LinearClassifier(hidden int) []ConfigLayer {
	return []ConfigLayer{
		Linear{Nout: hidden},
		Linear{Nout: 1},
	}
}

// RegularizedNonlinearClassifier is the layer stack for the nonlinear model:
// two blocks of affine + elu + batch norm + dropout, then an affine down to
// one logit and a final elu.
func RegularizedNonlinearClassifier(hidden int, dropProb float64) []ConfigLayer {
	return []ConfigLayer{
		Linear{Nout: hidden},
		Activation{Atype: "elu"},
		BatchNorm{},
		Dropout{Prob: dropProb},
		Linear{Nout: hidden},
		Activation{Atype: "elu"},
		BatchNorm{},
		Dropout{Prob: dropProb},
		Linear{Nout: 1},
		Activation{Atype: "elu"},
	}
}

// linear layer implementation
type linear struct {
	Linear
	nIn    int
	w, b   *mat.Dense
	dw, db *mat.Dense
	src    *mat.Dense
}

func (l *linear) Init(nIn int, rng *rand.Rand) int {
	l.nIn = nIn
	l.w = num.Zeros(nIn, l.Nout)
	l.dw = num.Zeros(nIn, l.Nout)
	l.b = num.Zeros(1, l.Nout)
	l.db = num.Zeros(1, l.Nout)
	return l.Nout
}

func (l *linear) InitParams(scale float64, normal bool, rng *rand.Rand) {
	data := l.w.RawMatrix().Data
	for i := range data {
		if normal {
			data[i] = rng.NormFloat64() * scale
		} else {
			data[i] = rng.Float64() * scale
		}
	}
	num.Fill(l.b, 0)
}

func (l *linear) Params() []Param {
	return []Param{{Value: l.w, Grad: l.dw}, {Value: l.b, Grad: l.db}}
}

func (l *linear) Fprop(x *mat.Dense, train bool) *mat.Dense {
	l.src = x
	rows, _ := x.Dims()
	dst := num.Zeros(rows, l.Nout)
	num.Linear(x, l.w, l.b, dst)
	return dst
}

func (l *linear) Bprop(grad *mat.Dense) *mat.Dense {
	num.ColSums(grad, l.db)
	l.dw.Mul(l.src.T(), grad)
	rows, _ := grad.Dims()
	dsrc := num.Zeros(rows, l.nIn)
	dsrc.Mul(grad, l.w.T())
	return dsrc
}

// activation layer implementation
type activation struct {
	Activation
	activ func(float64) float64
	deriv func(float64) float64
	src   *mat.Dense
}

func (l *activation) Init(nIn int, rng *rand.Rand) int {
	return nIn
}

func (l *activation) Fprop(x *mat.Dense, train bool) *mat.Dense {
	l.src = x
	rows, cols := x.Dims()
	dst := num.Zeros(rows, cols)
	num.Apply(l.activ, x, dst)
	return dst
}

func (l *activation) Bprop(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	dsrc := num.Zeros(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dsrc.Set(i, j, grad.At(i, j)*l.deriv(l.src.At(i, j)))
		}
	}
	return dsrc
}

// batch normalisation layer implementation
type batchNorm struct {
	BatchNorm
	nIn           int
	gamma, beta   *mat.Dense
	dgamma, dbeta *mat.Dense
	runMean       []float64
	runVar        []float64
	xhat          *mat.Dense
	invStd        []float64
}

func (l *batchNorm) Init(nIn int, rng *rand.Rand) int {
	l.nIn = nIn
	l.gamma = num.Zeros(1, nIn)
	l.beta = num.Zeros(1, nIn)
	l.dgamma = num.Zeros(1, nIn)
	l.dbeta = num.Zeros(1, nIn)
	l.runMean = make([]float64, nIn)
	l.runVar = make([]float64, nIn)
	num.Fill(l.gamma, 1)
	for j := range l.runVar {
		l.runVar[j] = 1
	}
	return nIn
}

func (l *batchNorm) InitParams(scale float64, normal bool, rng *rand.Rand) {
	num.Fill(l.gamma, 1)
	num.Fill(l.beta, 0)
	for j := range l.runVar {
		l.runMean[j] = 0
		l.runVar[j] = 1
	}
}

func (l *batchNorm) Params() []Param {
	return []Param{{Value: l.gamma, Grad: l.dgamma}, {Value: l.beta, Grad: l.dbeta}}
}

func (l *batchNorm) Fprop(x *mat.Dense, train bool) *mat.Dense {
	rows, cols := x.Dims()
	dst := num.Zeros(rows, cols)
	if !train {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				xhat := (x.At(i, j) - l.runMean[j]) / math.Sqrt(l.runVar[j]+bnEpsilon)
				dst.Set(i, j, l.gamma.At(0, j)*xhat+l.beta.At(0, j))
			}
		}
		return dst
	}
	mean, variance := num.ColMeanVar(x)
	l.xhat = num.Zeros(rows, cols)
	l.invStd = make([]float64, cols)
	for j := 0; j < cols; j++ {
		l.invStd[j] = 1 / math.Sqrt(variance[j]+bnEpsilon)
		for i := 0; i < rows; i++ {
			xhat := (x.At(i, j) - mean[j]) * l.invStd[j]
			l.xhat.Set(i, j, xhat)
			dst.Set(i, j, l.gamma.At(0, j)*xhat+l.beta.At(0, j))
		}
		// running estimates use the unbiased variance
		unbiased := variance[j]
		if rows > 1 {
			unbiased *= float64(rows) / float64(rows-1)
		}
		l.runMean[j] = (1-bnMomentum)*l.runMean[j] + bnMomentum*mean[j]
		l.runVar[j] = (1-bnMomentum)*l.runVar[j] + bnMomentum*unbiased
	}
	return dst
}

func (l *batchNorm) Bprop(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	dsrc := num.Zeros(rows, cols)
	n := float64(rows)
	for j := 0; j < cols; j++ {
		sumDy, sumDyXhat := 0.0, 0.0
		for i := 0; i < rows; i++ {
			sumDy += grad.At(i, j)
			sumDyXhat += grad.At(i, j) * l.xhat.At(i, j)
		}
		l.dbeta.Set(0, j, sumDy)
		l.dgamma.Set(0, j, sumDyXhat)
		k := l.gamma.At(0, j) * l.invStd[j] / n
		for i := 0; i < rows; i++ {
			dsrc.Set(i, j, k*(n*grad.At(i, j)-sumDy-l.xhat.At(i, j)*sumDyXhat))
		}
	}
	return dsrc
}

// dropout layer implementation
type dropout struct {
	Dropout
	rng  *rand.Rand
	mask *mat.Dense
}

func (l *dropout) Init(nIn int, rng *rand.Rand) int {
	l.rng = rng
	return nIn
}

func (l *dropout) Fprop(x *mat.Dense, train bool) *mat.Dense {
	if !train || l.Prob == 0 {
		l.mask = nil
		return x
	}
	rows, cols := x.Dims()
	l.mask = num.Zeros(rows, cols)
	dst := num.Zeros(rows, cols)
	keep := 1 / (1 - l.Prob)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if l.rng.Float64() >= l.Prob {
				l.mask.Set(i, j, keep)
				dst.Set(i, j, x.At(i, j)*keep)
			}
		}
	}
	return dst
}

func (l *dropout) Bprop(grad *mat.Dense) *mat.Dense {
	if l.mask == nil {
		return grad
	}
	rows, cols := grad.Dims()
	dsrc := num.Zeros(rows, cols)
	dsrc.MulElem(grad, l.mask)
	return dsrc
}

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func unmarshal(data json.RawMessage, v interface{}) {
	if len(data) == 0 {
		return
	}
	err := json.Unmarshal(data, v)
	if err != nil {
		panic(err)
	}
}
