package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Push(t *testing.T) {

	type test struct {
		values []float64
		avg    float64
		min    float64
		max    float64
		diff   float64
	}

	tests := map[string]test{
		"constant": {
			values: []float64{2, 2, 2, 2},
			avg:    2,
			min:    2,
			max:    2,
			diff:   0,
		},
		"decreasing-loss": {
			values: []float64{4, 3, 2, 1},
			avg:    2.5,
			min:    1,
			max:    4,
			diff:   -3,
		},
		"single": {
			values: []float64{0.5},
			avg:    0.5,
			min:    0.5,
			max:    0.5,
			diff:   0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			stats := NewStats()
			for _, v := range tt.values {
				stats.Push(v)
			}
			assert.Equal(t, len(tt.values), stats.Count())
			assert.InDelta(t, tt.avg, stats.Avg(), 1e-9)
			assert.Equal(t, tt.min, stats.Min())
			assert.Equal(t, tt.max, stats.Max())
			assert.InDelta(t, tt.diff, stats.Diff(), 1e-9)
		})
	}
}

func TestStatsCollector_Push(t *testing.T) {

	sc := NewStatsCollector(2)

	for i := 0; i < 10; i++ {
		sc.Push(float64(i), float64(10-i))
	}

	assert.Equal(t, 10, sc.Size())
	assert.InDelta(t, 4.5, sc.Stats()[0].Avg(), 1e-9)
	assert.InDelta(t, 5.5, sc.Stats()[1].Avg(), 1e-9)
}

func TestRing_Push(t *testing.T) {

	r := NewRing(3)

	for i := 0; i < 5; i++ {
		r.Push(i)
	}

	vv := r.Get(func(v interface{}) interface{} {
		return v
	})

	assert.Equal(t, 3, r.Size())
	assert.Equal(t, []interface{}{2, 3, 4}, vv)
}
