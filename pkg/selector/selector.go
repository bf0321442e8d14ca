package selector

import (
	"context"
	"fmt"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
	"pkrouting/pkg/types"
)

// Selector describes which part of a container a request targets. It is
// resolved first into effective-key ranges and then into the physical
// partitions currently owning them. Resolution never mutates a selector.
//
// The set of variants is closed: ExactKey, PhysicalRange and
// ResolvedInterval. Adding one means extending Visitor.
type Selector interface {
	EffectiveRanges(scheme partitionkey.Scheme) ([]partitionkey.Range, error)
	PhysicalPartitions(ctx context.Context, c routing.Collaborator, container types.ContainerID, scheme partitionkey.Scheme) ([]routing.Partition, error)
	Accept(v Visitor) error
	String() string

	isSelector()
}

// Visitor handles each selector variant without type switches on the caller side.
type Visitor interface {
	VisitExactKey(s *ExactKey) error
	VisitPhysicalRange(s *PhysicalRange) error
	VisitResolvedInterval(s *ResolvedInterval) error
}

// ExactKey targets one logical partition key, possibly a prefix of a
// hierarchical key.
type ExactKey struct {
	key partitionkey.Key
}

// NewExactKey checks components against scheme and builds the selector.
func NewExactKey(scheme partitionkey.Scheme, components ...partitionkey.Component) (*ExactKey, error) {
	key := partitionkey.NewKey(components...)
	if _, err := partitionkey.BuildRanges(key, scheme); err != nil {
		return nil, err
	}
	return &ExactKey{key: key}, nil
}

func (s *ExactKey) Key() partitionkey.Key {
	return partitionkey.NewKey(s.key...)
}

func (s *ExactKey) EffectiveRanges(scheme partitionkey.Scheme) ([]partitionkey.Range, error) {
	return partitionkey.BuildRanges(s.key, scheme)
}

func (s *ExactKey) PhysicalPartitions(ctx context.Context, c routing.Collaborator, container types.ContainerID, scheme partitionkey.Scheme) ([]routing.Partition, error) {
	return resolvePhysical(ctx, s, c, container, scheme)
}

func (s *ExactKey) Accept(v Visitor) error { return v.VisitExactKey(s) }
func (s *ExactKey) String() string         { return render(s) }
func (*ExactKey) isSelector()              {}

// PhysicalRange targets a partition by identifier, optionally narrowed to a
// sub-range of its boundary.
type PhysicalRange struct {
	partition routing.Partition
	subRange  *partitionkey.Range
}

func NewPhysicalRange(p routing.Partition) (*PhysicalRange, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: partition id is empty", dberrors.ErrInvalidArgument)
	}
	if err := p.Range().Validate(); err != nil {
		return nil, err
	}
	return &PhysicalRange{partition: p}, nil
}

// NewPhysicalSubRange narrows p to sub, which must lie inside p's boundary.
func NewPhysicalSubRange(p routing.Partition, sub partitionkey.Range) (*PhysicalRange, error) {
	s, err := NewPhysicalRange(p)
	if err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if !sub.Within(p.Min, p.Max) {
		return nil, fmt.Errorf("%w: sub-range %s outside partition %s", dberrors.ErrInvalidArgument, sub, p)
	}
	s.subRange = &sub
	return s, nil
}

func (s *PhysicalRange) Partition() routing.Partition { return s.partition }

// SubRange returns the narrowing range, if any.
func (s *PhysicalRange) SubRange() (partitionkey.Range, bool) {
	if s.subRange == nil {
		return partitionkey.Range{}, false
	}
	return *s.subRange, true
}

// EffectiveRanges passes the stored boundary through; no encoding is needed.
func (s *PhysicalRange) EffectiveRanges(partitionkey.Scheme) ([]partitionkey.Range, error) {
	if sub, ok := s.SubRange(); ok {
		return []partitionkey.Range{sub}, nil
	}
	return []partitionkey.Range{s.partition.Range()}, nil
}

// PhysicalPartitions re-resolves the boundary so a partition that has split
// since the selector was built maps to its children.
func (s *PhysicalRange) PhysicalPartitions(ctx context.Context, c routing.Collaborator, container types.ContainerID, scheme partitionkey.Scheme) ([]routing.Partition, error) {
	return resolvePhysical(ctx, s, c, container, scheme)
}

func (s *PhysicalRange) Accept(v Visitor) error { return v.VisitPhysicalRange(s) }
func (s *PhysicalRange) String() string         { return render(s) }
func (*PhysicalRange) isSelector()              {}

// ResolvedInterval carries a key-space range computed earlier, for example
// restored from a continuation.
type ResolvedInterval struct {
	rng partitionkey.Range
}

func NewResolvedInterval(lo, hi partitionkey.EffectiveKey) (*ResolvedInterval, error) {
	return NewResolvedRange(partitionkey.NewRange(lo, hi))
}

func NewResolvedRange(r partitionkey.Range) (*ResolvedInterval, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &ResolvedInterval{rng: r}, nil
}

func (s *ResolvedInterval) Range() partitionkey.Range { return s.rng }

func (s *ResolvedInterval) EffectiveRanges(partitionkey.Scheme) ([]partitionkey.Range, error) {
	return []partitionkey.Range{s.rng}, nil
}

func (s *ResolvedInterval) PhysicalPartitions(ctx context.Context, c routing.Collaborator, container types.ContainerID, scheme partitionkey.Scheme) ([]routing.Partition, error) {
	return resolvePhysical(ctx, s, c, container, scheme)
}

func (s *ResolvedInterval) Accept(v Visitor) error { return v.VisitResolvedInterval(s) }
func (s *ResolvedInterval) String() string         { return render(s) }
func (*ResolvedInterval) isSelector()              {}
