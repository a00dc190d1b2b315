package concurrent

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_Run(t *testing.T) {

	type test struct {
		workers int
		tasks   int
		fail    int
	}

	tests := map[string]test{
		"single-worker": {
			workers: 1,
			tasks:   10,
		},
		"more-workers-than-tasks": {
			workers: 16,
			tasks:   4,
		},
		"with-failures": {
			workers: 4,
			tasks:   20,
			fail:    5,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			pool := NewPool(tt.workers)
			counter := NewCounter(nil)

			tasks := make([]Task, tt.tasks)
			for i := 0; i < tt.tasks; i++ {
				i := i
				tasks[i] = func() error {
					counter.Track()
					if i < tt.fail {
						return fmt.Errorf("task %d failed", i)
					}
					return nil
				}
			}

			errs := pool.Run(tasks)

			assert.Equal(t, tt.tasks, counter.Get())
			assert.Equal(t, tt.fail, len(errs))
		})
	}
}

func TestCounter_Track(t *testing.T) {

	wg := new(sync.WaitGroup)
	wg.Add(100)

	counter := NewCounter(wg)

	for i := 0; i < 100; i++ {
		go counter.Track()
	}

	wg.Wait()
	assert.Equal(t, 100, counter.Get())
}
