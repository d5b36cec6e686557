package worker

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
)

// NotifyContext returns a context cancelled on the first SIGINT or
// SIGTERM, same as signal.NotifyContext, but additionally forces an
// immediate os.Exit(1) on a second such signal: the first signal asks
// in-flight units to wind down at their next interruption point (DEM
// fetch, reprojection, sweep, or polygonisation boundary), which can
// still take a while for a large zone; a second signal means the
// operator wants out now, not after the current unit finishes.
func NotifyContext(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, signals...)

	var count int32
	go func() {
		for range sigCh {
			n := atomic.AddInt32(&count, 1)
			if n == 1 {
				log.Printf("shutdown signal received, finishing in-flight units (send again to force exit)")
				cancel()
				continue
			}
			log.Printf("second shutdown signal received, exiting immediately")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
