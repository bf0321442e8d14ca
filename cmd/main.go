package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	httpapi "pkrouting/internal/http"
	"pkrouting/pkg/config"
	"pkrouting/pkg/metrics"
	"pkrouting/pkg/routing"
)

const defaultConfigPath = "config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := os.Getenv("PKROUTING_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := initConfig(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogger(&cfg)

	if err := run(ctx, &cfg); err != nil {
		slog.Error("pkrouting stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("pkrouting stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	schemes, err := cfg.Schemes()
	if err != nil {
		return err
	}

	prom := metrics.NewPrometheus()

	source, closeSource, err := initSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	cache := routing.NewCache(source, prom)

	// watcher сбрасывает кэш при изменении карты партиций в ZK
	if zks, ok := source.(*routing.ZKSource); ok {
		for container := range schemes {
			zks.Watch(ctx, container, cache)
		}
	}

	server := httpapi.NewServer(cache, schemes, prom.Handler(), strconv.Itoa(cfg.Server.Port))
	server.SetReadHeaderTimeout(cfg.Server.ReadHeaderTimeout)
	if err := server.Start(); err != nil {
		return err
	}
	slog.Info("pkrouting started", "source", cfg.Routing.Source, "containers", cfg.ContainerNames())

	<-ctx.Done()

	return server.Stop()
}

// initSource builds the partition-map source named in the config.
func initSource(ctx context.Context, cfg *config.Config) (routing.Source, func(), error) {
	noop := func() {}

	switch cfg.Routing.Source {
	case config.SourceStatic:
		maps, err := cfg.StaticPartitions()
		if err != nil {
			return nil, noop, err
		}
		src := routing.NewStaticSource()
		for container, parts := range maps {
			src.Set(container, parts)
		}
		return src, noop, nil

	case config.SourceZooKeeper:
		zkc := cfg.Routing.ZooKeeper
		src, err := routing.NewZKSource(zkc.Servers, zkc.Root, zkc.SessionTimeout)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to ZooKeeper: %w", err)
		}
		closeFn := func() {
			if err := src.Close(); err != nil {
				slog.Warn("Failed to close ZooKeeper session", "error", err)
			}
		}

		// статические карты из конфига публикуются как начальная топология
		maps, err := cfg.StaticPartitions()
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		for container, parts := range maps {
			if err := src.Publish(ctx, container, parts); err != nil {
				closeFn()
				return nil, noop, fmt.Errorf("publish %s: %w", container, err)
			}
			slog.Info("published partition map", "container", container, "partitions", len(parts))
		}
		return src, closeFn, nil

	case config.SourceHTTP:
		return routing.NewHTTPSource(cfg.Routing.HTTP.BaseURL, cfg.Routing.HTTP.Timeout), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown routing source %q", cfg.Routing.Source)
	}
}
