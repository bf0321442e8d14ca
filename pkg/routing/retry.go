package routing

import (
	"context"
	"log/slog"

	"pkrouting/pkg/metrics"
)

// WithRefresh runs fn against the cached routing map and, if the lookup
// misses, once more with a forced refresh. Any other error, cancellation
// included, is returned without a retry.
func WithRefresh[T any](
	ctx context.Context,
	mc metrics.Collector,
	fn func(ctx context.Context, forceRefresh bool) (T, error),
) (T, error) {
	v, err := fn(ctx, false)
	if err == nil || !IsStaleMapping(err) {
		return v, err
	}

	metrics.OrNop(mc).IncCounter(metrics.MetricStaleRetries, nil, 1)
	slog.Warn("stale routing map, retrying with refresh", "error", err)

	return fn(ctx, true)
}
