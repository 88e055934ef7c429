package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// runBudget executes fn with its own wall-clock budget and containment.
// On timeout, error, or panic the zero value is returned with ok=false and
// the result is discarded, never retried: the next scheduled pass is the
// retry. fn must not mutate shared state, so an abandoned call can finish
// harmlessly in the background.
func runBudget[T any](ctx context.Context, budget time.Duration, logger zerolog.Logger, name string, fn func(ctx context.Context) (T, error)) (T, bool) {
	var zero T

	if budget <= 0 {
		budget = 10 * time.Second
	}
	fnCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Str("task", name).Msg("数据采集任务 panic, 按无结果处理")
				done <- outcome{err: context.Canceled}
			}
		}()
		value, err := fn(fnCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-fnCtx.Done():
		logger.Warn().Str("task", name).Dur("budget", budget).Msg("数据采集超时, 本轮按无结果处理")
		return zero, false
	case out := <-done:
		if out.err != nil {
			logger.Warn().Err(out.err).Str("task", name).Msg("数据采集失败, 本轮按无结果处理")
			return zero, false
		}
		return out.value, true
	}
}
