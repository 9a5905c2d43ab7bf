// Package shutdown coordinates process termination: it turns OS signals into
// an observable stream and runs registered cleanup hooks in reverse order.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// Signals that trigger a graceful stop.
var Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Notify emits the first received signal and completes. It errors with the
// subscriber context's error when that ends first.
func Notify(sigs ...os.Signal) ro.Observable[os.Signal] {
	if len(sigs) == 0 {
		sigs = Signals
	}
	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sigs...)

		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			}
		}()

		return func() { signal.Stop(ch) }
	})
}

// Wait blocks until a signal arrives or ctx ends. A nil signal with a nil
// error means ctx completed without a signal.
func Wait(ctx context.Context, sigs ...os.Signal) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, Notify(sigs...))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
