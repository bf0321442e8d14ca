package routing

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/sync/singleflight"

	"pkrouting/pkg/clock"
	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/metrics"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/types"
)

// routingMap is an immutable snapshot of one container's partitions ordered
// by Min.
type routingMap struct {
	parts       []Partition
	fingerprint uint64
	epoch       uint64
}

// floor returns the index of the last partition whose Min is <= key, or -1.
func (m *routingMap) floor(key partitionkey.EffectiveKey) int {
	return sort.Search(len(m.parts), func(i int) bool {
		return m.parts[i].Min.Compare(key) > 0
	}) - 1
}

// version survives Invalidate so reloads can tell a topology change from a
// plain refresh.
type version struct {
	fingerprint uint64
	epoch       uint64
}

// Cache is a Collaborator that keeps one routing map per container and
// reloads it from a Source on demand.
type Cache struct {
	source  Source
	metrics metrics.Collector

	maps *skipmap.OrderedMap[types.ContainerID, *routingMap]

	mu   sync.Mutex // guards seen; orders Store against Invalidate
	seen map[types.ContainerID]version

	epoch *clock.Epoch
	group singleflight.Group
}

func NewCache(source Source, mc metrics.Collector) *Cache {
	return &Cache{
		source:  source,
		metrics: metrics.OrNop(mc),
		maps:    skipmap.New[types.ContainerID, *routingMap](),
		seen:    make(map[types.ContainerID]version),
		epoch:   clock.NewEpoch(0),
	}
}

func (c *Cache) PartitionByEffectiveKey(
	ctx context.Context,
	container types.ContainerID,
	key partitionkey.EffectiveKey,
	forceRefresh bool,
) (Partition, error) {
	c.metrics.IncCounter(metrics.MetricLookups, map[string]string{"kind": "point"}, 1)

	m, err := c.routingMap(ctx, container, forceRefresh)
	if err != nil {
		return Partition{}, &dberrors.LookupError{Container: string(container), Key: key.String(), Err: err}
	}

	i := m.floor(key)
	if i < 0 || !m.parts[i].Contains(key) {
		return Partition{}, &dberrors.LookupError{Container: string(container), Key: key.String(), Err: dberrors.ErrPartitionNotFound}
	}
	return m.parts[i], nil
}

func (c *Cache) PartitionsOverlappingRange(
	ctx context.Context,
	container types.ContainerID,
	r partitionkey.Range,
	forceRefresh bool,
) ([]Partition, error) {
	c.metrics.IncCounter(metrics.MetricLookups, map[string]string{"kind": "range"}, 1)

	lookupErr := func(err error) error {
		return &dberrors.LookupError{Container: string(container), Range: r.String(), Err: err}
	}
	if err := r.Validate(); err != nil {
		return nil, lookupErr(err)
	}

	m, err := c.routingMap(ctx, container, forceRefresh)
	if err != nil {
		return nil, lookupErr(err)
	}

	var (
		result []Partition
		next   = r.Min
	)
	for _, p := range m.parts[max(m.floor(r.Min), 0):] {
		if !r.Overlaps(p.Min, p.Max) {
			// ordered by Min: once past r.Max nothing else can overlap
			if p.Min.Compare(r.Max) > 0 {
				break
			}
			continue
		}
		if len(result) > 0 && !p.Min.Equal(next) {
			break
		}
		result = append(result, p)
		next = p.Max
	}

	// the range must be covered without gaps
	if len(result) == 0 || result[0].Min.Compare(r.Min) > 0 {
		return nil, lookupErr(dberrors.ErrPartitionNotFound)
	}
	if last := result[len(result)-1]; !r.Within(partitionkey.MinEffectiveKey, last.Max) {
		return nil, lookupErr(dberrors.ErrPartitionNotFound)
	}
	return result, nil
}

func (c *Cache) Metrics() metrics.Collector {
	return c.metrics
}

// Partitions returns the full routing map of container ordered by Min.
func (c *Cache) Partitions(ctx context.Context, container types.ContainerID, forceRefresh bool) ([]Partition, error) {
	m, err := c.routingMap(ctx, container, forceRefresh)
	if err != nil {
		return nil, &dberrors.LookupError{Container: string(container), Range: partitionkey.FullRange().String(), Err: err}
	}
	return append([]Partition(nil), m.parts...), nil
}

// Epoch returns the topology epoch of the cached map of container. Epochs
// grow across all containers; a reload of an unchanged map keeps its epoch.
func (c *Cache) Epoch(container types.ContainerID) (uint64, bool) {
	m, ok := c.maps.Load(container)
	if !ok {
		return 0, false
	}
	return m.epoch, true
}

// Invalidate drops the cached map of container; the next lookup reloads it.
func (c *Cache) Invalidate(container types.ContainerID) {
	c.mu.Lock()
	c.maps.Delete(container)
	c.mu.Unlock()
	slog.Debug("routing map invalidated", "container", container)
}

func (c *Cache) routingMap(ctx context.Context, container types.ContainerID, forceRefresh bool) (*routingMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	key := string(container)
	if forceRefresh {
		// a forced refresh must not join a load that started before the
		// caller saw its stale mapping
		key += "#force"
	} else if m, ok := c.maps.Load(container); ok {
		return m, nil
	}

	// concurrent refreshes of one container share a single load
	ch := c.group.DoChan(key, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), container)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*routingMap), nil
	case <-ctx.Done():
		return nil, cancelled(ctx.Err())
	}
}

func (c *Cache) refresh(ctx context.Context, container types.ContainerID) (*routingMap, error) {
	c.metrics.IncCounter(metrics.MetricRefreshes, nil, 1)

	parts, err := c.source.LoadPartitions(ctx, container)
	if err != nil {
		if isContextErr(err) {
			return nil, cancelled(err)
		}
		return nil, fmt.Errorf("load partitions: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("load partitions: %w: empty routing map", dberrors.ErrPartitionNotFound)
	}
	sorted, err := SortPartitions(parts)
	if err != nil {
		return nil, fmt.Errorf("load partitions: %w", err)
	}

	m := &routingMap{
		parts:       sorted,
		fingerprint: fingerprint(sorted),
	}

	c.mu.Lock()
	prev, had := c.seen[container]
	changed := !had || prev.fingerprint != m.fingerprint
	if changed {
		m.epoch = c.epoch.Next()
	} else {
		m.epoch = prev.epoch
	}
	c.seen[container] = version{fingerprint: m.fingerprint, epoch: m.epoch}
	c.maps.Store(container, m)
	c.mu.Unlock()

	if had && changed {
		c.metrics.IncCounter(metrics.MetricTopologyChanges, nil, 1)
		slog.Info("routing map changed", "container", container, "partitions", len(sorted), "epoch", m.epoch)
	} else {
		slog.Debug("routing map loaded", "container", container, "partitions", len(sorted), "epoch", m.epoch)
	}
	c.metrics.SetGauge(metrics.MetricPartitions, map[string]string{"container": string(container)}, float64(len(sorted)))
	return m, nil
}

func fingerprint(parts []Partition) uint64 {
	h := xxhash.New()
	var n [binary.MaxVarintLen64]byte
	for _, p := range parts {
		for _, field := range [][]byte{[]byte(p.ID), p.Min, p.Max} {
			_, _ = h.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
			_, _ = h.Write(field)
		}
	}
	return h.Sum64()
}

// IsStaleMapping reports whether err is a miss that a refresh may cure.
func IsStaleMapping(err error) bool {
	return errors.Is(err, dberrors.ErrPartitionNotFound) && !errors.Is(err, dberrors.ErrLookupCancelled)
}
