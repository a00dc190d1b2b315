package concurrent

import (
	"sync"
)

// Task is a unit of work executed by the pool.
// It returns an error to be collected by the caller.
type Task func() error

// Pool is a bounded worker pool.
// The dataset loader fans image decoding out over it,
// so that the number of open files stays under control.
type Pool struct {
	workers int
}

// NewPool creates a new pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes all tasks over the pool workers and blocks until they finish.
// It returns the errors encountered, in no particular order.
func (p *Pool) Run(tasks []Task) []error {

	in := make(chan Task)
	out := make(chan error, len(tasks))

	wg := new(sync.WaitGroup)
	wg.Add(len(tasks))
	completed := NewCounter(wg)

	for i := 0; i < p.workers; i++ {
		go func() {
			for task := range in {
				if err := task(); err != nil {
					out <- err
				}
				completed.Track()
			}
		}()
	}

	for _, task := range tasks {
		in <- task
	}
	close(in)
	wg.Wait()
	close(out)

	errs := make([]error, 0)
	for err := range out {
		errs = append(errs, err)
	}
	return errs
}
