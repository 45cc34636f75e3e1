package nnet

import (
	"gonum.org/v1/gonum/mat"
)

// SGD updates parameters in place by gradient descent with momentum and
// optional Nesterov lookahead. It keeps one velocity buffer per parameter,
// allocated lazily on the first step.
type SGD struct {
	Eta      float64
	Momentum float64
	Nesterov bool
	velocity []*mat.Dense
}

// NewSGD creates an optimizer from the run configuration.
func NewSGD(conf Config) *SGD {
	return &SGD{Eta: conf.Eta, Momentum: conf.Momentum, Nesterov: conf.Nesterov}
}

// Step applies one update to every parameter. It is the only place model
// parameters are mutated.
func (o *SGD) Step(params []Param) {
	if o.velocity == nil {
		o.velocity = make([]*mat.Dense, len(params))
		for i, p := range params {
			rows, cols := p.Value.Dims()
			o.velocity[i] = mat.NewDense(rows, cols, nil)
		}
	}
	for i, p := range params {
		w := p.Value.RawMatrix().Data
		g := p.Grad.RawMatrix().Data
		v := o.velocity[i].RawMatrix().Data
		for k := range w {
			step := g[k]
			if o.Momentum != 0 {
				v[k] = o.Momentum*v[k] + g[k]
				if o.Nesterov {
					step = g[k] + o.Momentum*v[k]
				} else {
					step = v[k]
				}
			}
			w[k] -= o.Eta * step
		}
	}
}
