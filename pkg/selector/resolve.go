package selector

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"pkrouting/pkg/metrics"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
	"pkrouting/pkg/types"
)

// metricsSource is implemented by collaborators that expose their collector.
type metricsSource interface {
	Metrics() metrics.Collector
}

func collectorOf(c routing.Collaborator) metrics.Collector {
	if ms, ok := c.(metricsSource); ok {
		return metrics.OrNop(ms.Metrics())
	}
	return metrics.Nop{}
}

// resolvePhysical maps every effective range of s to its owning partitions.
// Each lookup gets one refresh-and-retry on a stale map. The result is
// all-or-nothing: any failure, cancellation included, discards partial output.
func resolvePhysical(
	ctx context.Context,
	s Selector,
	c routing.Collaborator,
	container types.ContainerID,
	scheme partitionkey.Scheme,
) ([]routing.Partition, error) {
	ranges, err := s.EffectiveRanges(scheme)
	if err != nil {
		return nil, err
	}

	mc := collectorOf(c)
	start := time.Now()
	defer func() {
		mc.ObserveHistogram(metrics.MetricResolveSeconds, nil, time.Since(start).Seconds())
	}()

	results := make([][]routing.Partition, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			parts, err := lookupRange(gctx, c, mc, container, r)
			if err != nil {
				return err
			}
			results[i] = parts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergePartitions(results), nil
}

func lookupRange(
	ctx context.Context,
	c routing.Collaborator,
	mc metrics.Collector,
	container types.ContainerID,
	r partitionkey.Range,
) ([]routing.Partition, error) {
	if r.IsPoint() {
		p, err := routing.WithRefresh(ctx, mc, func(ctx context.Context, force bool) (routing.Partition, error) {
			return c.PartitionByEffectiveKey(ctx, container, r.Min, force)
		})
		if err != nil {
			return nil, err
		}
		return []routing.Partition{p}, nil
	}
	return routing.WithRefresh(ctx, mc, func(ctx context.Context, force bool) ([]routing.Partition, error) {
		return c.PartitionsOverlappingRange(ctx, container, r, force)
	})
}

// mergePartitions drops duplicates and orders the result by Min.
func mergePartitions(results [][]routing.Partition) []routing.Partition {
	seen := make(map[types.PartitionID]struct{})
	var out []routing.Partition
	for _, parts := range results {
		for _, p := range parts {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Min.Compare(out[j].Min) < 0 })
	return out
}
