package net

import (
	"math"

	"github.com/drakos74/go-ex-machina/xmath"
)

// MaxPool2D is a 2x2 max pooling with stride 2 and same padding.
type MaxPool2D struct {
	size     int
	channels int
	argmax   []int
}

// NewMaxPool2D creates a new pooling layer over a size x size input.
func NewMaxPool2D(size, channels int) *MaxPool2D {
	return &MaxPool2D{
		size:     size,
		channels: channels,
	}
}

// OutSize returns the spatial size of the pooled output.
func (p *MaxPool2D) OutSize() int {
	return (p.size + 1) / 2
}

// Shape returns the flattened input and output sizes of the layer.
func (p *MaxPool2D) Shape() (int, int) {
	out := p.OutSize()
	return p.size * p.size * p.channels, out * out * p.channels
}

// Forward picks the maximum of each 2x2 window, remembering its position.
func (p *MaxPool2D) Forward(v xmath.Vector) xmath.Vector {
	outSize := p.OutSize()
	out := xmath.Vec(outSize * outSize * p.channels)
	p.argmax = make([]int, len(out))

	for y := 0; y < outSize; y++ {
		for x := 0; x < outSize; x++ {
			for ch := 0; ch < p.channels; ch++ {
				max := math.Inf(-1)
				arg := -1
				for ky := 0; ky < 2; ky++ {
					for kx := 0; kx < 2; kx++ {
						yy := 2*y + ky
						xx := 2*x + kx
						if yy >= p.size || xx >= p.size {
							continue
						}
						i := (yy*p.size+xx)*p.channels + ch
						if v[i] > max {
							max = v[i]
							arg = i
						}
					}
				}
				o := (y*outSize+x)*p.channels + ch
				out[o] = max
				p.argmax[o] = arg
			}
		}
	}
	return out
}

// Backward routes each gradient back to the position the maximum came from.
func (p *MaxPool2D) Backward(grad xmath.Vector) xmath.Vector {
	dInput := xmath.Vec(p.size * p.size * p.channels)
	for o, i := range p.argmax {
		dInput[i] += grad[o]
	}
	return dInput
}

// State returns empty parameters, as pooling has none.
func (p *MaxPool2D) State() LayerState {
	return LayerState{}
}

// Restore is a noop, as pooling has no parameters.
func (p *MaxPool2D) Restore(state LayerState) {
}
