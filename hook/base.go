package hook

// Base provides a default no-op implementation of the Hook interface.
// Users can embed this in their custom hooks and override only the methods they need.
type Base struct {
	id string
}

// NewHookBase creates a new base hook with the given ID.
func NewHookBase(id string) *Base {
	return &Base{id: id}
}

// ID returns the unique identifier for this hook.
func (h *Base) ID() string {
	return h.id
}

// Provides determines if the hook provides the given event.
func (h *Base) Provides(event Event) bool {
	return false
}

// Init initializes the hook with the given config.
func (h *Base) Init(config any) error {
	return nil
}

// Stop stops the hook.
func (h *Base) Stop() error {
	return nil
}

// OnConnectAuthenticate is called during the connect authenticate phase.
func (h *Base) OnConnectAuthenticate(client *Client, packet *ConnectPacket) bool {
	return true
}

// OnACLCheck is called to check ACLs.
func (h *Base) OnACLCheck(client *Client, topic string, access AccessType) bool {
	return true
}

// OnConnect is called when a client connects.
func (h *Base) OnConnect(client *Client, packet *ConnectPacket) error {
	return nil
}

// OnDisconnect is called when a client disconnects.
func (h *Base) OnDisconnect(client *Client, err error) error {
	return nil
}

// OnSubscribe is called when a subscribe packet is received.
func (h *Base) OnSubscribe(client *Client, sub *Subscription) error {
	return nil
}

// OnSubscribed is called when a client is subscribed.
func (h *Base) OnSubscribed(client *Client, sub *Subscription) error {
	return nil
}
