// Command broker runs a standalone MQTT broker: CONNECT/CONNACK handshake,
// SUBSCRIBE/SUBACK, PINGREQ/PINGRESP, and a literal+wildcard subscription
// trie. PUBLISH dispatch, persisted sessions, and TLS are not wired here;
// see DESIGN.md for what this bootstrap broker does and does not do.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexmq/broker/broker"
	"github.com/nexmq/broker/hook"
	"github.com/nexmq/broker/pkg/logger"
	"github.com/nexmq/broker/retained"
	"github.com/nexmq/broker/session"
)

func main() {
	var (
		addr            = flag.String("addr", "0.0.0.0:1883", "listen address")
		allowAnonymous  = flag.Bool("allow-anonymous", true, "permit CONNECT packets with no username/password")
		rateLimit       = flag.Int("connect-rate-limit", 0, "max CONNECT attempts per remote address per window (0 disables)")
		rateWindow      = flag.Duration("connect-rate-window", time.Minute, "fixed window for -connect-rate-limit")
		retainedBackend = flag.String("retained-backend", "memory", "retained-message persistence: memory, pebble, or redis")
		pebblePath      = flag.String("pebble-path", "./data/retained", "directory for the pebble retained-message backend")
		redisAddr       = flag.String("redis-addr", "127.0.0.1:6379", "address for the redis retained-message backend")
		logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	log := logger.NewSlogLogger(parseLevel(*logLevel), os.Stdout)
	slogger := log.Slog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	retainedStore, err := newRetainedStore(ctx, *retainedBackend, *pebblePath, *redisAddr)
	if err != nil {
		slogger.Error("failed to initialize retained store", slog.Any("error", err))
		os.Exit(1)
	}
	defer retainedStore.Close()

	hooks := hook.NewManager()
	anon := hook.NewAnonymousAuthHook(*allowAnonymous)
	if err := hooks.Add(anon); err != nil {
		slogger.Error("failed to register anonymous-auth hook", slog.Any("error", err))
		os.Exit(1)
	}

	var rate *hook.RateLimitHook
	if *rateLimit > 0 {
		rate = hook.NewRateLimitHook(*rateLimit, *rateWindow)
		if err := hooks.Add(rate); err != nil {
			slogger.Error("failed to register rate-limit hook", slog.Any("error", err))
			os.Exit(1)
		}
		defer rate.Stop()
	}

	cfg := broker.DefaultConfig()
	cfg.Address = *addr
	cfg.Logger = slogger

	b := broker.New(cfg, hooks, rate, retainedStore)

	go func() {
		<-ctx.Done()
		slogger.Info("shutdown signal received, draining connections")
		if err := b.Shutdown(10 * time.Second); err != nil {
			slogger.Warn("shutdown did not complete cleanly", slog.Any("error", err))
		}
	}()

	if err := b.ListenAndServe(); err != nil && err != broker.ErrListenerClosed {
		slogger.Error("broker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func newRetainedStore(ctx context.Context, backend, pebblePath, redisAddr string) (*retained.Store, error) {
	switch backend {
	case "memory", "":
		return retained.NewStore(), nil
	case "pebble":
		store, err := session.NewPebbleStore[*retained.Message](session.PebbleStoreConfig{Path: pebblePath})
		if err != nil {
			return nil, fmt.Errorf("open pebble store at %s: %w", pebblePath, err)
		}
		return retained.NewStoreWithBackend(ctx, store)
	case "redis":
		store, err := session.NewRedisStore[*retained.Message](session.RedisStoreConfig{Addr: redisAddr, Prefix: "retained:"})
		if err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
		}
		return retained.NewStoreWithBackend(ctx, store)
	default:
		return nil, fmt.Errorf("unknown retained-backend %q", backend)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
