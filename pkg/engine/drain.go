package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	drainInitialInterval = 10 * time.Millisecond
	drainMaxInterval     = time.Second
)

// Drain calls More until the final batch, passing every batch with rows to
// handle. Pending batches are retried after the connector's requested delay,
// or with exponential backoff when the connector gave none.
func Drain(ctx context.Context, w *ConnectorWorkItem, handle func(*AtomicResultsMessage) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = drainInitialInterval
	bo.MaxInterval = drainMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		results, err := w.More(ctx)
		if err != nil {
			return err
		}

		if results.IsPending() {
			delay := results.Pending.RetryDelay
			if delay <= 0 {
				delay = bo.NextBackOff()
			}
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		if len(results.Rows) > 0 || results.IsFinal() {
			if err := handle(results); err != nil {
				return err
			}
		}
		if results.IsFinal() {
			return nil
		}
		bo.Reset()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
