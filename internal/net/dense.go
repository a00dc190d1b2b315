package net

import (
	"math/rand"

	"github.com/drakos74/go-ex-machina/xmachina/ml"
	"github.com/drakos74/go-ex-machina/xmath"
)

// Dense is a fully connected layer with an activation.
type Dense struct {
	n, m    int
	rate    float64
	act     ml.Activation
	weights xmath.Matrix
	bias    xmath.Vector
	input   xmath.Vector
	output  xmath.Vector
}

// NewDense creates a new fully connected layer with n inputs and m outputs.
func NewDense(n, m int, act ml.Activation, rate float64, rng *rand.Rand) *Dense {
	weights := xmath.Mat(m)
	for i := 0; i < m; i++ {
		w := xmath.Vec(n)
		for j := range w {
			w[j] = he(rng, n)
		}
		weights[i] = w
	}
	return &Dense{
		n:       n,
		m:       m,
		rate:    rate,
		act:     act,
		weights: weights,
		bias:    xmath.Vec(m),
	}
}

// Shape returns the input and output sizes of the layer.
func (d *Dense) Shape() (int, int) {
	return d.n, d.m
}

// Forward combines the input with the weights, adds the bias
// and applies the activation.
func (d *Dense) Forward(v xmath.Vector) xmath.Vector {
	xmath.MustHaveSize(v, d.n)
	d.input = v
	d.output = d.weights.Prod(v).Add(d.bias).Op(d.act.F)
	return d.output
}

// Backward propagates the loss gradient, updating weights and bias.
func (d *Dense) Backward(grad xmath.Vector) xmath.Vector {
	// gate the gradient by the activation derivative
	dz := grad.X(d.output.Op(d.act.D))
	// loss for the previous layer
	dInput := d.weights.T().Prod(dz)
	// update weights and bias
	dw := dz.Prod(d.input)
	d.weights = d.weights.Add(dw.Mult(-1 * d.rate))
	d.bias = d.bias.Add(dz.Mult(-1 * d.rate))
	return dInput
}

// State returns the layer parameters.
func (d *Dense) State() LayerState {
	return LayerState{Weights: d.weights, Bias: d.bias}
}

// Restore sets the layer parameters.
func (d *Dense) Restore(state LayerState) {
	d.weights = state.Weights
	d.bias = state.Bias
}

// Dropout zeroes a fraction of its input during training,
// scaling the surviving values up to keep the expectation.
type Dropout struct {
	rate  float64
	train bool
	rng   *rand.Rand
	mask  xmath.Vector
}

// NewDropout creates a new dropout layer.
func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{
		rate: rate,
		rng:  rng,
	}
}

// Train toggles training mode.
func (d *Dropout) Train(train bool) {
	d.train = train
}

// Forward applies the dropout mask in training mode
// and is a pass-through otherwise.
func (d *Dropout) Forward(v xmath.Vector) xmath.Vector {
	if !d.train || d.rate == 0 {
		d.mask = nil
		return v
	}
	d.mask = xmath.Vec(len(v))
	out := xmath.Vec(len(v))
	scale := 1 / (1 - d.rate)
	for i := range v {
		if d.rng.Float64() >= d.rate {
			d.mask[i] = scale
			out[i] = v[i] * scale
		}
	}
	return out
}

// Backward applies the same mask to the gradient.
func (d *Dropout) Backward(grad xmath.Vector) xmath.Vector {
	if d.mask == nil {
		return grad
	}
	return grad.X(d.mask)
}

// State returns empty parameters, as dropout has none.
func (d *Dropout) State() LayerState {
	return LayerState{}
}

// Restore is a noop, as dropout has no parameters.
func (d *Dropout) Restore(state LayerState) {
}
