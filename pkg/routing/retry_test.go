package routing

import (
	"context"
	"errors"
	"testing"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/metrics"
)

type countingCollector struct {
	metrics.Nop
	counters map[string]float64
}

func (c *countingCollector) IncCounter(name string, _ map[string]string, delta float64) {
	if c.counters == nil {
		c.counters = map[string]float64{}
	}
	c.counters[name] += delta
}

func TestWithRefresh_RetriesOnceOnMiss(t *testing.T) {
	var calls []bool
	mc := &countingCollector{}

	got, err := WithRefresh(context.Background(), mc, func(_ context.Context, force bool) (string, error) {
		calls = append(calls, force)
		if !force {
			return "", &dberrors.LookupError{Container: "c", Key: "10", Err: dberrors.ErrPartitionNotFound}
		}
		return "p1", nil
	})
	if err != nil || got != "p1" {
		t.Fatalf("WithRefresh = %q, %v", got, err)
	}
	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Fatalf("calls = %v, want [false true]", calls)
	}
	if mc.counters[metrics.MetricStaleRetries] != 1 {
		t.Fatalf("stale retries = %v", mc.counters[metrics.MetricStaleRetries])
	}
}

func TestWithRefresh_SurfacesSecondMiss(t *testing.T) {
	calls := 0
	_, err := WithRefresh(context.Background(), nil, func(context.Context, bool) (int, error) {
		calls++
		return 0, dberrors.ErrPartitionNotFound
	})
	if !errors.Is(err, dberrors.ErrPartitionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want exactly one retry", calls)
	}
}

func TestWithRefresh_NoRetryOnOtherErrors(t *testing.T) {
	for _, want := range []error{
		cancelled(context.Canceled),
		dberrors.ErrInvalidKeyShape,
		errors.New("boom"),
	} {
		calls := 0
		_, err := WithRefresh(context.Background(), nil, func(context.Context, bool) (int, error) {
			calls++
			return 0, want
		})
		if !errors.Is(err, want) || calls != 1 {
			t.Fatalf("err = %v calls = %d, want %v without retry", err, calls, want)
		}
	}
}
