package net

import (
	"math"
	"math/rand"

	"github.com/drakos74/go-ex-machina/xmachina/ml"
)

// ReLU is a relu activation with a derivative defined on the output.
// The output is positive exactly when the pre-activation is,
// so the gate can be read off the output directly.
var ReLU ml.Activation = relu{}

type relu struct {
}

func (r relu) F(x float64) float64 {
	return math.Max(0, x)
}

func (r relu) D(y float64) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

// Linear is the identity activation used by the output heads,
// which apply softmax and sigmoid outside of the dense layer.
var Linear ml.Activation = linear{}

type linear struct {
}

func (l linear) F(x float64) float64 {
	return x
}

func (l linear) D(y float64) float64 {
	return 1
}

// he draws an initial weight for the given fan-in.
func he(rng *rand.Rand, fanIn int) float64 {
	return rng.NormFloat64() * math.Sqrt(2/float64(fanIn))
}
