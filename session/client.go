package session

import (
	"net"
	"sync"
	"time"

	"github.com/nexmq/broker/encoding"
)

// State is the lifecycle state of a Client's connection.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

// WillMessage is the CONNECT-supplied last-will, published by the broker
// when the client disconnects without a prior DISCONNECT.
type WillMessage struct {
	Topic   string
	Payload []byte
	QoS     encoding.QoS
	Retain  bool
}

// Client is the broker's record of one accepted connection: its identity,
// its negotiated session parameters, and the subscriptions it owns. A
// Client is created on accept and destroyed when its connection driver
// loop exits; the subscription tree holds only non-owning references to
// it, so on destruction every filter in Subscriptions must be removed
// from the tree (the tree lookup is keyed by ClientID, not by this
// pointer).
type Client struct {
	mu sync.RWMutex

	ID              uint64
	ClientID        string
	ProtocolVersion encoding.ProtocolVersion
	Conn            net.Conn
	RemoteAddr      string

	ConnectedAt  time.Time
	LastActivity time.Time

	CleanStart            bool
	SessionExpiryInterval uint32
	KeepAlive             uint16

	Username string
	Password []byte

	Will *WillMessage

	state State

	// Subscriptions is the set of topic filters this client currently
	// holds in the subscription tree, kept so teardown on disconnect is
	// O(subscriptions) rather than a tree walk.
	Subscriptions map[string]struct{}

	nextPacketID uint16

	ReceiveMaximum    uint16
	MaximumPacketSize uint32
}

// NewClient builds a Client for a freshly accepted connection. It starts
// in StateConnecting; the driver moves it to StateConnected once the
// handshake succeeds.
func NewClient(id uint64, conn net.Conn) *Client {
	now := time.Now()
	return &Client{
		ID:                id,
		Conn:              conn,
		RemoteAddr:        conn.RemoteAddr().String(),
		ConnectedAt:       now,
		LastActivity:      now,
		state:             StateConnecting,
		Subscriptions:     make(map[string]struct{}),
		nextPacketID:      1,
		ReceiveMaximum:    65535,
		MaximumPacketSize: 268435455,
	}
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) SetState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Client) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastActivity = time.Now()
}

func (c *Client) IdleFor() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.LastActivity)
}

// AddSubscription records filter as one this client holds. Returns false
// if it was already present (caller may still choose to re-subscribe in
// the tree to update options).
func (c *Client) AddSubscription(filter string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Subscriptions[filter]; ok {
		return false
	}
	c.Subscriptions[filter] = struct{}{}
	return true
}

// RemoveSubscription forgets filter. Returns false if it was not held.
func (c *Client) RemoveSubscription(filter string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Subscriptions[filter]; !ok {
		return false
	}
	delete(c.Subscriptions, filter)
	return true
}

// SubscribedFilters returns a snapshot of every filter this client holds,
// for teardown on disconnect.
func (c *Client) SubscribedFilters() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	filters := make([]string, 0, len(c.Subscriptions))
	for f := range c.Subscriptions {
		filters = append(filters, f)
	}
	return filters
}

// NextPacketID returns the next packet identifier, wrapping from 65535
// back to 1 (0 is never a valid packet id).
func (c *Client) NextPacketID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextPacketID
	c.nextPacketID++
	if c.nextPacketID == 0 {
		c.nextPacketID = 1
	}
	return id
}

func (c *Client) SetWill(will *WillMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Will = will
}

func (c *Client) GetWill() *WillMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Will
}

func (c *Client) ClearWill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Will = nil
}

// Close closes the underlying connection. Safe to call multiple times.
func (c *Client) Close() error {
	return c.Conn.Close()
}
