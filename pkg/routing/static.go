package routing

import (
	"context"
	"fmt"
	"sync"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/types"
)

// StaticSource serves partition maps held in memory. Set replaces a map,
// which is how splits and merges are simulated.
type StaticSource struct {
	mu    sync.RWMutex
	maps  map[types.ContainerID][]Partition
	loads int
}

func NewStaticSource() *StaticSource {
	return &StaticSource{maps: make(map[types.ContainerID][]Partition)}
}

func (s *StaticSource) Set(container types.ContainerID, parts []Partition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maps[container] = append([]Partition(nil), parts...)
}

func (s *StaticSource) LoadPartitions(ctx context.Context, container types.ContainerID) ([]Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	parts, ok := s.maps[container]
	if !ok {
		return nil, fmt.Errorf("container %s: %w", container, dberrors.ErrPartitionNotFound)
	}
	return append([]Partition(nil), parts...), nil
}

// Loads returns how many times LoadPartitions was called.
func (s *StaticSource) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}
