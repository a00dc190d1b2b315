package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrain_Validate(t *testing.T) {

	type test struct {
		mutate func(c *Train)
		err    bool
	}

	tests := map[string]test{
		"defaults": {
			mutate: func(c *Train) {},
		},
		"zero-image-size": {
			mutate: func(c *Train) { c.ImageSize = 0 },
			err:    true,
		},
		"zero-batch": {
			mutate: func(c *Train) { c.BatchSize = 0 },
			err:    true,
		},
		"split-zero": {
			mutate: func(c *Train) { c.Split = 0 },
			err:    true,
		},
		"split-one-leaves-no-validation-set": {
			mutate: func(c *Train) { c.Split = 1 },
			err:    true,
		},
		"zero-rate": {
			mutate: func(c *Train) { c.Rate = 0 },
			err:    true,
		},
		"no-model-name": {
			mutate: func(c *Train) { c.ModelName = "" },
			err:    true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewTrain()
			tt.mutate(&c)
			err := c.Validate()
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServe_Validate(t *testing.T) {

	type test struct {
		mutate func(c *Serve)
		err    bool
	}

	tests := map[string]test{
		"defaults": {
			mutate: func(c *Serve) {},
		},
		"zero-port": {
			mutate: func(c *Serve) { c.Port = 0 },
			err:    true,
		},
		"no-model-name": {
			mutate: func(c *Serve) { c.ModelName = "" },
			err:    true,
		},
		"threshold-one": {
			mutate: func(c *Serve) { c.Threshold = 1 },
			err:    true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewServe()
			tt.mutate(&c)
			err := c.Validate()
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
