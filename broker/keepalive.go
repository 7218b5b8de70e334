package broker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nexmq/broker/session"
)

// connectionKeepAlive is a per-connection watchdog grounded on
// network/keepalive.go's timer-driven structure, but inverted: the
// teacher's KeepAlive actively sends PINGs from the client side of a
// connection; this one only ever watches for incoming activity, since
// PINGREQ is always client-initiated and the broker's sole obligation is
// closing a connection that has gone quiet. SPEC_FULL §5 sets the
// deadline multiplier at 1.5x the negotiated keep_alive, not the
// teacher's additive interval+timeout rule.
type connectionKeepAlive struct {
	client *session.Client
	dur    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newKeepAlive(client *session.Client, multiplier float64, logger *slog.Logger) *connectionKeepAlive {
	var dur time.Duration
	if client.KeepAlive > 0 {
		dur = time.Duration(float64(client.KeepAlive) * multiplier * float64(time.Second))
	}
	return &connectionKeepAlive{client: client, dur: dur, logger: logger}
}

// Start arms the watchdog. A keep_alive of zero disables the timeout
// entirely, per MQTT's keep-alive semantics.
func (k *connectionKeepAlive) Start() {
	if k.dur <= 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	k.timer = time.AfterFunc(k.dur, k.onTimeout)
}

// resetDeadline pushes the deadline out by dur, called on every byte read
// from the connection.
func (k *connectionKeepAlive) resetDeadline() {
	if k.dur <= 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timer != nil && !k.stopped {
		k.timer.Reset(k.dur)
	}
}

func (k *connectionKeepAlive) onTimeout() {
	k.logger.Info("keep-alive timeout, closing connection",
		slog.String("client_id", k.client.ClientID),
		slog.Duration("keep_alive_deadline", k.dur))
	_ = k.client.Close()
}

// Stop disarms the watchdog. Safe to call multiple times.
func (k *connectionKeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	if k.timer != nil {
		k.timer.Stop()
	}
}
