package iconcollector

import (
	"context"
	"time"
)

// clock suspends the pipeline between page checks. Tests substitute a
// clock that returns immediately and records what was asked of it.
type clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// poll evaluates cond every interval until it reports true or the summed
// waiting reaches timeout. It returns false with the last condition error,
// if any, when the budget runs out. Only context errors abort early.
func poll(ctx context.Context, clk clock, interval, timeout time.Duration, cond func(context.Context) (bool, error)) (bool, error) {
	if interval <= 0 {
		interval = timeout
	}
	var lastErr error
	for waited := time.Duration(0); ; waited += interval {
		ok, err := cond(ctx)
		if ok {
			return true, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			lastErr = err
		}
		if waited >= timeout {
			return false, lastErr
		}
		if err := clk.Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
}
