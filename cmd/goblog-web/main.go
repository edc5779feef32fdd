// Command goblog-web serves the blog's session, guard and data endpoints in
// front of the REST backend.
//
// Configuration is read from GOBLOG_* variables, optionally seeded from
// .env and .env.local. Without GOBLOG_REDIS_ADDR the server refuses to start
// unless GOBLOG_DEV_REDIS=true, in which case an in-process Redis is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goBlog "github.com/MrEthical07/goBlog"
	"github.com/MrEthical07/goBlog/auditamqp"
	"github.com/MrEthical07/goBlog/internal/config"
	"github.com/MrEthical07/goBlog/internal/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "goblog-web: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		return err
	}
	srv, err := config.LoadServer()
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(srv)
	if err != nil {
		return err
	}
	defer closeRedis()

	b := goBlog.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logger)

	if srv.AMQPURL != "" {
		sink, err := auditamqp.Dial(auditamqp.Config{
			URL:    srv.AMQPURL,
			Queue:  srv.AMQPQueue,
			Logger: logger.With("component", "audit"),
		})
		if err != nil {
			return err
		}
		b = b.WithAuditSink(sink)
	} else if cfg.Audit.Enabled {
		b = b.WithAuditSink(goBlog.NewJSONWriterSink(os.Stdout))
	}

	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn(context.Background(), "goblog-web: engine close", "error", err)
		}
		for eventType, n := range engine.AuditDroppedByType() {
			logger.Warn(context.Background(), "goblog-web: audit events dropped", "event_type", eventType, "count", n)
		}
	}()

	go pruneLoop(ctx, engine, cfg.Cache.GCTime, logger)

	httpServer := &http.Server{
		Addr:              srv.Addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "goblog-web: listening", "addr", srv.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(srv config.Server) logging.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(srv.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(srv.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return logging.NewSlogLogger(slog.New(handler))
}

func openRedis(srv config.Server) (redis.UniversalClient, func(), error) {
	if srv.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{srv.RedisAddr},
			Password: srv.RedisPassword,
			DB:       srv.RedisDB,
		})
		return client, func() { _ = client.Close() }, nil
	}
	if !srv.DevRedis {
		return nil, nil, errors.New("GOBLOG_REDIS_ADDR is required (set GOBLOG_DEV_REDIS=true for an in-process redis)")
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start dev redis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func pruneLoop(ctx context.Context, engine *goBlog.Engine, every time.Duration, logger logging.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := engine.PruneCache(); n > 0 {
				logger.Debug(ctx, "goblog-web: pruned query cache", "entries", n)
			}
		}
	}
}
