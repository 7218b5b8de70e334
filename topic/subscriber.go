// Package topic implements the subscription-matching engine: a trie keyed
// by topic level that supports the "+" and "#" wildcards and validates
// topic names and filters per the MQTT rules.
package topic

import "github.com/nexmq/broker/encoding"

// SubscriberInfo is the non-owning reference a trie node keeps for each
// subscribed client. It carries just enough to route a matched publish
// back to the client's own driver; the client record itself (and its
// stream) lives in the broker's client registry, never here.
type SubscriberInfo struct {
	ClientID               string
	QoS                    encoding.QoS
	NoLocal                bool
	RetainAsPublished      bool
	RetainHandling         byte
	SubscriptionIdentifier uint32
}
