// Package nnet contains routines for constructing, training and evaluating
// binary classifiers on tabular data.
package nnet

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Network type represents one classifier model: an ordered layer stack
// producing a single logit per example. The two supported architectures are
// built with LinearClassifier and RegularizedNonlinearClassifier.
type Network struct {
	Config
	Layers     []Layer
	InFeatures int
	shapes     []int
}

// New function creates a new network from the config layer stack.
// The config is validated first so a bad run fails before training starts.
func New(conf Config, nFeatures int, rng *rand.Rand) (*Network, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if nFeatures <= 0 {
		return nil, configErr("DataSet", "feature count must be positive, got %d", nFeatures)
	}
	n := &Network{Config: conf, InFeatures: nFeatures}
	shape := nFeatures
	for _, l := range conf.Layers {
		layer := l.Unmarshal()
		n.shapes = append(n.shapes, shape)
		shape = layer.Init(shape, rng)
		n.Layers = append(n.Layers, layer)
	}
	if shape != 1 {
		return nil, configErr("Layers", "stack must end with a single logit, got %d outputs", shape)
	}
	return n, nil
}

// Initialise network weights using a uniform or normal distribution.
// Weights for each layer are scaled by 1/sqrt(nin)
func (n *Network) InitWeights(rng *rand.Rand) {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			scale := 1 / math.Sqrt(float64(n.shapes[i]))
			l.InitParams(scale, n.NormalWeights, rng)
		}
	}
}

// Feed forward the input to get one logit per example. The train flag is
// passed down to every layer; evaluation mode is deterministic for a fixed
// parameter set.
func (n *Network) Fprop(x *mat.Dense, train bool) *mat.Dense {
	pred := x
	for _, layer := range n.Layers {
		pred = layer.Fprop(pred, train)
	}
	return pred
}

// Back propagate the output gradient through the stack, filling each
// parameter gradient.
func (n *Network) Bprop(grad *mat.Dense) {
	for i := len(n.Layers) - 1; i >= 0; i-- {
		grad = n.Layers[i].Bprop(grad)
	}
}

// Params collects the parameters of every layer in stack order.
func (n *Network) Params() []Param {
	var params []Param
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			params = append(params, l.Params()...)
		}
	}
	return params
}

// ZeroGrad clears the accumulated parameter gradients.
func (n *Network) ZeroGrad() {
	for _, p := range n.Params() {
		data := p.Grad.RawMatrix().Data
		for i := range data {
			data[i] = 0
		}
	}
}

// Predict runs the model in evaluation mode and thresholds the output at
// probability 0.5.
func (n *Network) Predict(x *mat.Dense) []int {
	logits := n.Fprop(x, false)
	rows, _ := logits.Dims()
	preds := make([]int, rows)
	for i := range preds {
		preds[i] = predictLabel(logits.At(i, 0))
	}
	return preds
}

// Print network description
func (n *Network) String() string {
	s := make([]string, len(n.Layers))
	for i, layer := range n.Layers {
		s[i] = fmt.Sprintf("%2d: %-25s nin=%d", i, layer.ToString(), n.shapes[i])
	}
	return fmt.Sprintf("%s\n== Network ==\n%s", n.Config.configString(), strings.Join(s, "\n"))
}

// NewRng returns a seeded random number generator so runs are reproducible,
// or a time based one if seed <= 0.
func NewRng(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	fmt.Println("random seed =", seed)
	return rand.New(rand.NewSource(seed))
}
