package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/m4n5ter/ownership-cache-killer/admin"
	"github.com/m4n5ter/ownership-cache-killer/cache"
	"github.com/m4n5ter/ownership-cache-killer/cache/redis"
	"github.com/m4n5ter/ownership-cache-killer/compliance"
	"github.com/m4n5ter/ownership-cache-killer/config"
	"github.com/m4n5ter/ownership-cache-killer/cron"
	"github.com/m4n5ter/ownership-cache-killer/database/mysql"
	"github.com/m4n5ter/ownership-cache-killer/ledger"
	"github.com/m4n5ter/ownership-cache-killer/logger"
	"github.com/m4n5ter/ownership-cache-killer/metrics"
	"github.com/m4n5ter/ownership-cache-killer/processor"
	"github.com/m4n5ter/ownership-cache-killer/transport/amqp"
	"github.com/m4n5ter/ownership-cache-killer/transport/kafka"
)

var config_path = flag.String("config", "/etc/ownership-cache-killer/config.yaml", "configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*config_path)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, level := logger.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)

	err = config.Watch(*config_path, log, func(c *config.Config) {
		level.Set(logger.ParseLevel(c.Log.Level))
	})
	if err != nil {
		log.Warn("Configuration hot reload disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Ownership cache killer stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	redisCache := redis.NewRedisCache(redis.Options{
		Addrs:     cfg.Redis.Addrs,
		Username:  cfg.Redis.Username,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	}, log)
	defer redisCache.Close()
	var cacheKiller cache.CacheKiller = redisCache

	gaps := ledger.New()
	reporter := compliance.NewHTTPReporter(cfg.Compliance.BaseURL, cfg.Compliance.Timeout)

	proc, err := processor.New(cacheKiller, reporter,
		processor.WithServiceName(cfg.Compliance.ServiceName),
		processor.WithSingleEventReport(processor.SingleEventReport{
			CaseID:      cfg.Compliance.SingleEvent.CaseID,
			RequestType: cfg.Compliance.SingleEvent.RequestType,
		}),
		processor.WithConcurrency(cfg.Processor.Concurrency),
		processor.WithLogger(log),
		processor.WithMetrics(m),
		processor.WithLedger(gaps),
	)
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	alerts := cron.NewCron(gaps, cfg.Cron.GapAlertInterval, log)
	if err := alerts.Start(); err != nil {
		return err
	}
	defer alerts.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	srv := admin.NewServer(cfg.Admin.Addr, admin.NewRouter(cacheKiller, registry, log))
	g.Go(func() error {
		log.Info("Serving admin endpoints", "addr", cfg.Admin.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafka.New(kafka.Options{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			Group:          cfg.Kafka.Group,
			MaxPollRecords: cfg.Kafka.MaxPollRecords,
		}, proc, log)
		if err != nil {
			return err
		}
		defer consumer.Close()

		if cfg.Kafka.CreateTopic {
			if err := consumer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
				return err
			}
		}
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if cfg.AMQP.URL != "" {
		subscriber, err := amqp.NewSubscriber(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.Prefetch, proc, log)
		if err != nil {
			return err
		}
		defer subscriber.Close()
		g.Go(func() error { return subscriber.Run(ctx) })
	}

	if cfg.Binlog.Enabled {
		listener := mysql.NewMysqlBinlog(cfg.Binlog.DataDir, cfg.Binlog.Tables, log)
		g.Go(func() error { return listener.Listen(ctx, proc) })
	}

	return g.Wait()
}
