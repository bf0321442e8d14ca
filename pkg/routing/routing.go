package routing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/types"
)

// Partition is a physical partition and the effective-key interval
// [Min, Max) the store currently assigns to it.
type Partition struct {
	ID  types.PartitionID         `json:"id"`
	Min partitionkey.EffectiveKey `json:"min"`
	Max partitionkey.EffectiveKey `json:"max"`
}

func (p Partition) Range() partitionkey.Range {
	return partitionkey.NewRange(p.Min, p.Max)
}

func (p Partition) Contains(key partitionkey.EffectiveKey) bool {
	return p.Range().Contains(key)
}

func (p Partition) String() string {
	return fmt.Sprintf("%s%s", p.ID, p.Range())
}

// Collaborator maps effective keys and ranges of a container to the physical
// partitions that currently own them. forceRefresh asks the implementation to
// bypass any cached routing map.
type Collaborator interface {
	PartitionByEffectiveKey(ctx context.Context, container types.ContainerID, key partitionkey.EffectiveKey, forceRefresh bool) (Partition, error)
	// PartitionsOverlappingRange returns the partitions intersecting r, ordered by Min.
	PartitionsOverlappingRange(ctx context.Context, container types.ContainerID, r partitionkey.Range, forceRefresh bool) ([]Partition, error)
}

// Source is the authoritative partition map of a container.
type Source interface {
	LoadPartitions(ctx context.Context, container types.ContainerID) ([]Partition, error)
}

// SortPartitions orders partitions by Min and checks that they do not overlap.
func SortPartitions(parts []Partition) ([]Partition, error) {
	sorted := append([]Partition(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min.Compare(sorted[j].Min) < 0 })

	for i, p := range sorted {
		if p.Min.Compare(p.Max) >= 0 {
			return nil, fmt.Errorf("%w: partition %s is empty", dberrors.ErrInvalidArgument, p)
		}
		if i > 0 && p.Min.Compare(sorted[i-1].Max) < 0 {
			return nil, fmt.Errorf("%w: partitions %s and %s overlap", dberrors.ErrInvalidArgument, sorted[i-1], p)
		}
	}
	return sorted, nil
}

// cancelled reports a lookup aborted by its context. The context error stays
// reachable through errors.Is.
func cancelled(err error) error {
	return errors.Join(dberrors.ErrLookupCancelled, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
