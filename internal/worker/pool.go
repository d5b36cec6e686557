// Package worker runs the (sensor, zone) computation units over a
// bounded goroutine pool, following the WaitGroup-and-context pattern
// the radar command uses for its background routines, generalised from
// one fixed set of named goroutines to a pool sized from RunConfig.
package worker

import (
	"context"
	"fmt"
	"sync"
)

// Unit is one (sensor, zone) computation to run. It must check
// ctx.Done() between its own interruptible sub-steps (DEM fetch,
// reprojection, radial sweep, polygonisation) so cancellation takes
// effect at a unit boundary rather than only between units.
type Unit struct {
	SensorID  string
	ZoneIndex int
	Run       func(ctx context.Context) error
}

// Result pairs a unit with the error its Run returned, if any.
type Result struct {
	Unit Unit
	Err  error
}

// Pool runs units over a bounded number of goroutines, returning one
// Result per unit (in no particular order) as they complete. It
// returns early, leaving remaining units unstarted, if ctx is
// cancelled; already-running units are given the chance to observe
// cancellation and return their own error.
func Pool(ctx context.Context, units []Unit, maxWorkers int) []Result {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	jobs := make(chan Unit)
	results := make(chan Result, len(units))

	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				err := u.Run(ctx)
				if err == nil {
					if cerr := ctx.Err(); cerr != nil {
						err = fmt.Errorf("worker: cancelled: %w", cerr)
					}
				}
				results <- Result{Unit: u, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range units {
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(units))
	for r := range results {
		out = append(out, r)
	}
	return out
}
