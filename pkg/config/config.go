package config

import (
	"fmt"
	"sort"
	"time"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
	"pkrouting/pkg/types"
)

// Config - корневая структура конфигурации приложения
// yaml и validate теги для парсинга и валидации

type Config struct {
	Logger     LoggerConfig               `yaml:"logger" validate:"required"`
	Server     ServerConfig               `yaml:"http-server" validate:"required"`
	Routing    RoutingConfig              `yaml:"routing" validate:"required"`
	Containers map[string]ContainerConfig `yaml:"containers"`
}

type ServerConfig struct {
	Port              int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

const (
	SourceStatic    = "static"
	SourceZooKeeper = "zookeeper"
	SourceHTTP      = "http"
)

type RoutingConfig struct {
	Source    string                       `yaml:"source" validate:"required,oneof=static zookeeper http"`
	ZooKeeper ZooKeeperConfig              `yaml:"zookeeper"`
	HTTP      HTTPSourceConfig             `yaml:"http"`
	Static    map[string][]PartitionConfig `yaml:"static"`
}

type ZooKeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	Root           string        `yaml:"root"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type HTTPSourceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PartitionConfig is one partition of a static routing map; boundaries are hex.
type PartitionConfig struct {
	ID  string `yaml:"id" validate:"required"`
	Min string `yaml:"min"`
	Max string `yaml:"max" validate:"required"`
}

type ContainerConfig struct {
	Paths []string `yaml:"paths" validate:"required,min=1"`
	Kind  string   `yaml:"kind" validate:"required,oneof=Hash MultiHash Range"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
		},
		Routing: RoutingConfig{
			Source: SourceStatic,
			ZooKeeper: ZooKeeperConfig{
				Root:           "/pkrouting",
				SessionTimeout: 5 * time.Second,
			},
			HTTP: HTTPSourceConfig{
				Timeout: 5 * time.Second,
			},
			Static: map[string][]PartitionConfig{
				"orders": {
					{ID: "0", Min: "", Max: "15"},
					{ID: "1", Min: "15", Max: "2A"},
					{ID: "2", Min: "2A", Max: "FF"},
				},
			},
		},
		Containers: map[string]ContainerConfig{
			"orders": {
				Paths: []string{"/tenantId", "/orderId"},
				Kind:  "MultiHash",
			},
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: http-server.port %d", dberrors.ErrInvalidArgument, c.Server.Port)
	}
	if _, err := c.Schemes(); err != nil {
		return err
	}

	switch c.Routing.Source {
	case SourceStatic:
		if _, err := c.StaticPartitions(); err != nil {
			return err
		}
	case SourceZooKeeper:
		if len(c.Routing.ZooKeeper.Servers) == 0 {
			return fmt.Errorf("%w: routing.zookeeper.servers is empty", dberrors.ErrInvalidArgument)
		}
	case SourceHTTP:
		if c.Routing.HTTP.BaseURL == "" {
			return fmt.Errorf("%w: routing.http.base_url is empty", dberrors.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: routing.source %q", dberrors.ErrInvalidArgument, c.Routing.Source)
	}
	return nil
}

// Schemes returns the partitioning scheme of every configured container.
func (c *Config) Schemes() (map[types.ContainerID]partitionkey.Scheme, error) {
	out := make(map[types.ContainerID]partitionkey.Scheme, len(c.Containers))
	for name, cc := range c.Containers {
		kind, err := partitionkey.ParseSchemeKind(cc.Kind)
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", name, err)
		}
		scheme := partitionkey.NewScheme(kind, cc.Paths...)
		if err := scheme.Validate(); err != nil {
			return nil, fmt.Errorf("container %s: %w", name, err)
		}
		out[types.ContainerID(name)] = scheme
	}
	return out, nil
}

// StaticPartitions parses the static routing maps. Each map must cover the
// whole key space without gaps.
func (c *Config) StaticPartitions() (map[types.ContainerID][]routing.Partition, error) {
	out := make(map[types.ContainerID][]routing.Partition, len(c.Routing.Static))
	for name, pcs := range c.Routing.Static {
		parts := make([]routing.Partition, 0, len(pcs))
		for _, pc := range pcs {
			lo, err := partitionkey.ParseEffectiveKey(pc.Min)
			if err != nil {
				return nil, fmt.Errorf("container %s partition %s: %w", name, pc.ID, err)
			}
			hi, err := partitionkey.ParseEffectiveKey(pc.Max)
			if err != nil {
				return nil, fmt.Errorf("container %s partition %s: %w", name, pc.ID, err)
			}
			parts = append(parts, routing.Partition{ID: types.PartitionID(pc.ID), Min: lo, Max: hi})
		}

		sorted, err := routing.SortPartitions(parts)
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", name, err)
		}
		if err := checkCoverage(sorted); err != nil {
			return nil, fmt.Errorf("container %s: %w", name, err)
		}
		out[types.ContainerID(name)] = sorted
	}
	return out, nil
}

func checkCoverage(parts []routing.Partition) error {
	next := partitionkey.MinEffectiveKey
	for _, p := range parts {
		if !p.Min.Equal(next) {
			return fmt.Errorf("%w: gap before partition %s", dberrors.ErrInvalidArgument, p)
		}
		next = p.Max
	}
	if !next.Equal(partitionkey.MaxEffectiveKey) {
		return fmt.Errorf("%w: routing map ends at %s, want %s", dberrors.ErrInvalidArgument, next, partitionkey.MaxEffectiveKey)
	}
	return nil
}

// ContainerNames returns the configured containers in sorted order.
func (c *Config) ContainerNames() []string {
	names := make([]string, 0, len(c.Containers))
	for name := range c.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
