// Package retained holds the broker's retained-message map: the single
// most recent retained message per topic. Deliberately simpler than a
// topic-trie: one retained message exists per literal topic, and a
// subscription filter is matched against the stored topics with
// Store.Match. The connection driver does not call into this package:
// it stores nothing from PUBLISH (which it does not handle) and delivers
// no retained message on SUBSCRIBE.
package retained

import (
	"time"

	"github.com/nexmq/broker/encoding"
)

// Message is the unit value the retained map (and its optional
// session.Store backend) operate on.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       encoding.QoS
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (m *Message) expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}
