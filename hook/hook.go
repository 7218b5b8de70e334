package hook

import (
	"net"
	"time"
)

// Event identifies a point in the connection lifecycle a Hook can provide
// behavior for.
type Event byte

const (
	OnConnectAuthenticate Event = iota
	OnACLCheck
	OnConnect
	OnDisconnect
	OnSubscribe
	OnSubscribed
)

// String returns the string representation of the event.
func (e Event) String() string {
	names := [...]string{
		"OnConnectAuthenticate",
		"OnACLCheck",
		"OnConnect",
		"OnDisconnect",
		"OnSubscribe",
		"OnSubscribed",
	}
	if e < Event(len(names)) {
		return names[e]
	}
	return "Unknown"
}

// Hook is the sole interface through which broker behavior this broker
// treats as an external collaborator is reached: authentication, ACL
// checks, connect/disconnect lifecycle notification, and subscription
// policy/notification. Manager fans a call out to every registered hook
// that Provides the corresponding Event.
type Hook interface {
	// ID returns a unique identifier for this hook.
	ID() string

	// Provides indicates if the hook provides implementation for the given event.
	Provides(event Event) bool

	// Init initializes the hook with the given configuration.
	Init(config any) error

	// Stop stops the hook.
	Stop() error

	// OnConnectAuthenticate is called to authenticate a client connection.
	OnConnectAuthenticate(client *Client, packet *ConnectPacket) bool

	// OnACLCheck is called to check access control for topic operations.
	OnACLCheck(client *Client, topic string, access AccessType) bool

	// OnConnect is called when a client connects.
	OnConnect(client *Client, packet *ConnectPacket) error

	// OnDisconnect is called when a client disconnects.
	OnDisconnect(client *Client, err error) error

	// OnSubscribe is called before processing a subscription.
	OnSubscribe(client *Client, sub *Subscription) error

	// OnSubscribed is called after a subscription is completed.
	OnSubscribed(client *Client, sub *Subscription) error
}

// Client is the subset of connection state a hook needs to make a policy
// decision. It mirrors session.Client but stays decoupled from it so this
// package has no dependency on the session package.
type Client struct {
	ID          string
	RemoteAddr  net.Addr
	ConnectedAt time.Time
}

// ConnectPacket holds the CONNECT fields a hook needs to authenticate or
// authorize a client.
type ConnectPacket struct {
	ProtocolVersion byte
	CleanStart      bool
	KeepAlive       uint16
	ClientID        string
	Username        string
	Password        []byte
}

// Subscription represents a single topic filter within a SUBSCRIBE packet.
type Subscription struct {
	ClientID    string
	TopicFilter string
	QoS         byte
}

// AccessType represents the type of access for an ACL check.
type AccessType byte

const (
	AccessTypeRead AccessType = iota
	AccessTypeWrite
	AccessTypeReadWrite
)
