package net

import (
	"math/rand"

	"github.com/drakos74/go-ex-machina/xmath"
)

// Conv2D is a 3x3 convolution with same padding and stride 1,
// followed by a relu activation.
// Tensors are flattened row-major as (y, x, channel).
type Conv2D struct {
	size    int
	in, out int
	kernel  int
	rate    float64
	// one row per filter, holding the kernel*kernel*in patch weights
	weights xmath.Matrix
	bias    xmath.Vector
	input   xmath.Vector
	output  xmath.Vector
}

// NewConv2D creates a new convolution layer over a size x size input
// with in channels and out filters.
func NewConv2D(size, in, out int, rate float64, rng *rand.Rand) *Conv2D {
	kernel := 3
	fanIn := kernel * kernel * in
	weights := xmath.Mat(out)
	for f := 0; f < out; f++ {
		w := xmath.Vec(fanIn)
		for i := range w {
			w[i] = he(rng, fanIn)
		}
		weights[f] = w
	}
	return &Conv2D{
		size:    size,
		in:      in,
		out:     out,
		kernel:  kernel,
		rate:    rate,
		weights: weights,
		bias:    xmath.Vec(out),
	}
}

// Shape returns the flattened input and output sizes of the layer.
func (c *Conv2D) Shape() (int, int) {
	return c.size * c.size * c.in, c.size * c.size * c.out
}

func (c *Conv2D) at(v xmath.Vector, y, x, ch, channels int) float64 {
	return v[(y*c.size+x)*channels+ch]
}

// Forward applies the convolution and relu.
func (c *Conv2D) Forward(v xmath.Vector) xmath.Vector {
	c.input = v
	pad := c.kernel / 2
	out := xmath.Vec(c.size * c.size * c.out)
	for y := 0; y < c.size; y++ {
		for x := 0; x < c.size; x++ {
			for f := 0; f < c.out; f++ {
				sum := c.bias[f]
				w := c.weights[f]
				for ky := 0; ky < c.kernel; ky++ {
					for kx := 0; kx < c.kernel; kx++ {
						yy := y + ky - pad
						xx := x + kx - pad
						if yy < 0 || yy >= c.size || xx < 0 || xx >= c.size {
							continue
						}
						for ch := 0; ch < c.in; ch++ {
							sum += w[(ky*c.kernel+kx)*c.in+ch] * c.at(v, yy, xx, ch, c.in)
						}
					}
				}
				out[(y*c.size+x)*c.out+f] = ReLU.F(sum)
			}
		}
	}
	c.output = out
	return out
}

// Backward propagates the loss gradient, updating weights and bias.
func (c *Conv2D) Backward(grad xmath.Vector) xmath.Vector {
	pad := c.kernel / 2
	dInput := xmath.Vec(len(c.input))
	dWeights := xmath.Mat(c.out).Of(c.kernel * c.kernel * c.in)
	dBias := xmath.Vec(c.out)

	for y := 0; y < c.size; y++ {
		for x := 0; x < c.size; x++ {
			for f := 0; f < c.out; f++ {
				i := (y*c.size+x)*c.out + f
				dz := grad[i] * ReLU.D(c.output[i])
				if dz == 0 {
					continue
				}
				dBias[f] += dz
				w := c.weights[f]
				for ky := 0; ky < c.kernel; ky++ {
					for kx := 0; kx < c.kernel; kx++ {
						yy := y + ky - pad
						xx := x + kx - pad
						if yy < 0 || yy >= c.size || xx < 0 || xx >= c.size {
							continue
						}
						for ch := 0; ch < c.in; ch++ {
							wi := (ky*c.kernel+kx)*c.in + ch
							xi := (yy*c.size+xx)*c.in + ch
							dWeights[f][wi] += dz * c.input[xi]
							dInput[xi] += dz * w[wi]
						}
					}
				}
			}
		}
	}

	c.weights = c.weights.Add(dWeights.Mult(-1 * c.rate))
	c.bias = c.bias.Add(dBias.Mult(-1 * c.rate))

	return dInput
}

// State returns the layer parameters.
func (c *Conv2D) State() LayerState {
	return LayerState{Weights: c.weights, Bias: c.bias}
}

// Restore sets the layer parameters.
func (c *Conv2D) Restore(state LayerState) {
	c.weights = state.Weights
	c.bias = state.Bias
}
