package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/types"
)

// zkConn is the subset of *zk.Conn the source uses.
type zkConn interface {
	Exists(path string) (bool, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Delete(path string, version int32) error
	State() zk.State
	Close()
}

// ZKSource reads partition maps from ZooKeeper. Each partition is a znode
// <root>/containers/<container>/partitions/<id> holding "<min>,<max>" in hex.
// <root>/containers/<container>/epoch is bumped on every publish, so boundary
// rewrites that keep the partition ids are still observable.
type ZKSource struct {
	conn        zkConn
	root        string
	waitTimeout time.Duration
}

// servers: ["zk1:2181", "zk2:2181"]
func NewZKSource(servers []string, root string, sessionTimeout time.Duration) (*ZKSource, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return newZKSource(conn, root), nil
}

func newZKSource(conn zkConn, root string) *ZKSource {
	return &ZKSource{
		conn:        conn,
		root:        path.Clean("/" + root),
		waitTimeout: 10 * time.Second,
	}
}

func (s *ZKSource) Close() error {
	s.conn.Close()
	return nil
}

func (s *ZKSource) partitionsPath(container types.ContainerID) string {
	return path.Join(s.root, "containers", string(container), "partitions")
}

func (s *ZKSource) epochPath(container types.ContainerID) string {
	return path.Join(s.root, "containers", string(container), "epoch")
}

func (s *ZKSource) LoadPartitions(ctx context.Context, container types.ContainerID) ([]Partition, error) {
	if err := s.waitConnected(ctx); err != nil {
		return nil, err
	}

	dir := s.partitionsPath(container)
	children, _, err := s.conn.Children(dir)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, fmt.Errorf("container %s: %w", container, dberrors.ErrPartitionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("zk children %s: %w", dir, err)
	}
	sort.Strings(children)

	parts := make([]Partition, 0, len(children))
	for _, id := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, _, err := s.conn.Get(path.Join(dir, id))
		if errors.Is(err, zk.ErrNoNode) {
			// removed by a concurrent split; the map is stale either way
			return nil, fmt.Errorf("partition %s/%s: %w", container, id, dberrors.ErrPartitionNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("zk get %s: %w", id, err)
		}
		p, err := decodeBoundary(types.PartitionID(id), data)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// Publish writes the routing map of container, replacing partitions that are
// no longer part of it.
func (s *ZKSource) Publish(ctx context.Context, container types.ContainerID, parts []Partition) error {
	if _, err := SortPartitions(parts); err != nil {
		return err
	}
	if err := s.waitConnected(ctx); err != nil {
		return err
	}

	dir := s.partitionsPath(container)
	if err := s.ensurePath(dir); err != nil {
		return fmt.Errorf("ensure partitions path: %w", err)
	}

	keep := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		keep[string(p.ID)] = struct{}{}
		node := path.Join(dir, string(p.ID))
		data := encodeBoundary(p)

		_, err := s.conn.Create(node, data, 0, zk.WorldACL(zk.PermAll))
		if errors.Is(err, zk.ErrNodeExists) {
			_, err = s.conn.Set(node, data, -1)
		}
		if err != nil {
			return fmt.Errorf("write partition %s: %w", p.ID, err)
		}
	}

	children, _, err := s.conn.Children(dir)
	if err != nil {
		return fmt.Errorf("zk children %s: %w", dir, err)
	}
	for _, id := range children {
		if _, ok := keep[id]; ok {
			continue
		}
		if err := s.conn.Delete(path.Join(dir, id), -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			return fmt.Errorf("remove partition %s: %w", id, err)
		}
	}

	epoch, err := s.bumpEpoch(container)
	if err != nil {
		return fmt.Errorf("bump epoch: %w", err)
	}

	slog.Info("routing map published", "container", container, "partitions", len(parts), "epoch", epoch)
	return nil
}

func (s *ZKSource) bumpEpoch(container types.ContainerID) (uint64, error) {
	p := s.epochPath(container)
	data, st, err := s.conn.Get(p)
	if errors.Is(err, zk.ErrNoNode) {
		_, err = s.conn.Create(p, []byte("1"), 0, zk.WorldACL(zk.PermAll))
		if errors.Is(err, zk.ErrNodeExists) {
			return s.bumpEpoch(container)
		}
		return 1, err
	}
	if err != nil {
		return 0, err
	}
	cur, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: epoch %q", dberrors.ErrInvalidArgument, data)
	}
	if _, err := s.conn.Set(p, []byte(strconv.FormatUint(cur+1, 10)), st.Version); err != nil {
		if errors.Is(err, zk.ErrBadVersion) {
			return s.bumpEpoch(container)
		}
		return 0, err
	}
	return cur + 1, nil
}

// Watch invalidates the cached map of container whenever its partition set
// or its epoch changes in ZooKeeper. The watch runs in the background until
// ctx is done.
func (s *ZKSource) Watch(ctx context.Context, container types.ContainerID, cache *Cache) {
	dir := s.partitionsPath(container)
	epoch := s.epochPath(container)
	go func() {
		var children, data <-chan zk.Event
		for {
			var err error
			if children == nil {
				_, _, children, err = s.conn.ChildrenW(dir)
			}
			if err == nil && data == nil {
				// ExistsW also arms a watch when the node is missing
				_, _, data, err = s.conn.ExistsW(epoch)
			}
			if err != nil {
				slog.Warn("zk watch failed", "container", container, "error", err)
				select {
				case <-time.After(2 * time.Second):
					continue
				case <-ctx.Done():
					return
				}
			}

			select {
			case ev := <-children:
				children = nil
				slog.Debug("zk event", "path", dir, "type", ev.Type.String())
				cache.Invalidate(container)
			case ev := <-data:
				data = nil
				slog.Debug("zk event", "path", epoch, "type", ev.Type.String())
				cache.Invalidate(container)
			case <-ctx.Done():
				slog.Debug("zk watch stopped", "container", container)
				return
			}
		}
	}()
}

func (s *ZKSource) ensurePath(p string) error {
	cur := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		cur = cur + "/" + part
		exists, _, err := s.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = s.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return err
			}
		}
	}
	return nil
}

func (s *ZKSource) waitConnected(ctx context.Context) error {
	deadline := time.Now().Add(s.waitTimeout)
	for {
		st := s.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("zk: not connected after %s, state=%v", s.waitTimeout, st)
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func encodeBoundary(p Partition) []byte {
	return []byte(p.Min.String() + "," + p.Max.String())
}

func decodeBoundary(id types.PartitionID, data []byte) (Partition, error) {
	lo, hi, ok := strings.Cut(string(data), ",")
	if !ok {
		return Partition{}, fmt.Errorf("%w: partition %s: malformed boundary %q", dberrors.ErrInvalidArgument, id, data)
	}
	pmin, err := partitionkey.ParseEffectiveKey(lo)
	if err != nil {
		return Partition{}, fmt.Errorf("partition %s: %w", id, err)
	}
	pmax, err := partitionkey.ParseEffectiveKey(hi)
	if err != nil {
		return Partition{}, fmt.Errorf("partition %s: %w", id, err)
	}
	return Partition{ID: id, Min: pmin, Max: pmax}, nil
}
