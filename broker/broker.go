package broker

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nexmq/broker/hook"
	"github.com/nexmq/broker/retained"
	"github.com/nexmq/broker/session"
	"github.com/nexmq/broker/topic"
)

// Config tunes a Broker's listener and per-connection behavior.
type Config struct {
	Address             string
	ReadBufferSize      int
	WriteBufferSize     int
	KeepAliveMultiplier float64
	Logger              *slog.Logger
}

// DefaultConfig returns the bootstrap broker's defaults: bind to every
// interface on the IANA-assigned MQTT port, 4096-byte read/write buffers,
// and the 1.5x keep_alive multiplier SPEC_FULL §5 mandates.
func DefaultConfig() *Config {
	return &Config{
		Address:             "0.0.0.0:1883",
		ReadBufferSize:      4096,
		WriteBufferSize:     4096,
		KeepAliveMultiplier: 1.5,
	}
}

// Broker owns every piece of shared state a connection driver touches: the
// client registry, the subscription trie, the hook manager, and the
// retained-message store. It has no notion of a "pool" or a "connection"
// object distinct from session.Client — accepting a socket and running its
// driver loop are both the Broker's responsibility.
type Broker struct {
	config *Config
	log    *slog.Logger

	clients  *session.Registry
	subs     *topic.Trie
	hooks    *hook.Manager
	retained *retained.Store
	rate     *hook.RateLimitHook

	listener atomic.Pointer[net.Listener]

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Broker. hooks and rate may be nil; rate being nil disables
// CONNECT-admission throttling entirely.
func New(config *Config, hooks *hook.Manager, rate *hook.RateLimitHook, retainedStore *retained.Store) *Broker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if hooks == nil {
		hooks = hook.NewManager()
	}
	if retainedStore == nil {
		retainedStore = retained.NewStore()
	}

	return &Broker{
		config:   config,
		log:      config.Logger,
		clients:  session.NewRegistry(),
		subs:     topic.NewTrie(),
		hooks:    hooks,
		retained: retainedStore,
		rate:     rate,
		closed:   make(chan struct{}),
	}
}

// ListenAndServe binds config.Address with SO_REUSEADDR and accepts
// connections until Shutdown is called or the listener errors. It blocks
// until the accept loop exits.
func (b *Broker) ListenAndServe() error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", b.config.Address)
	if err != nil {
		return err
	}
	b.listener.Store(&ln)

	b.log.Info("broker listening", slog.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-b.closed:
				return ErrListenerClosed
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.driveConnection(conn)
		}()
	}
}

// Shutdown closes the listener and every currently connected Client, then
// waits up to timeout for their driver goroutines to exit.
func (b *Broker) Shutdown(timeout time.Duration) error {
	b.closeOnce.Do(func() {
		close(b.closed)
		if ln := b.listener.Load(); ln != nil {
			_ = (*ln).Close()
		}
		b.clients.Close()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrGracefulShutdownTimeout
	}
}

// Clients exposes the broker's client registry, e.g. for metrics or admin
// tooling built on top of this package.
func (b *Broker) Clients() *session.Registry { return b.clients }

// Subscriptions exposes the subscription trie.
func (b *Broker) Subscriptions() *topic.Trie { return b.subs }

// Retained exposes the retained-message store.
func (b *Broker) Retained() *retained.Store { return b.retained }

// Listener returns the broker's bound net.Listener, or nil before
// ListenAndServe has completed binding.
func (b *Broker) Listener() net.Listener {
	ln := b.listener.Load()
	if ln == nil {
		return nil
	}
	return *ln
}
