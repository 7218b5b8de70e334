package retained

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nexmq/broker/session"
)

// Store is the retained-message map: a plain map[string]*Message guarded
// by a RWMutex, per the bootstrap broker's deliberately simple framing —
// no trie, no per-level nodes. It optionally wraps a session.Store[*Message]
// so a retained message survives a process restart; this is NOT session
// persistence (subscriptions, in-flight state, and session.Store[*Session]
// are never wired here).
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Message
	backend session.Store[*Message]
	closed  bool
}

// NewStore creates an in-memory-only retained store. Pass a non-nil
// backend to NewStoreWithBackend instead if retained messages should
// survive a restart.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Message)}
}

// NewStoreWithBackend creates a retained store that mirrors every Set and
// Delete to backend, and loads its existing contents from it.
func NewStoreWithBackend(ctx context.Context, backend session.Store[*Message]) (*Store, error) {
	s := &Store{
		entries: make(map[string]*Message),
		backend: backend,
	}

	keys, err := backend.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, topic := range keys {
		msg, err := backend.Load(ctx, topic)
		if err != nil {
			continue
		}
		s.entries[topic] = msg
	}

	return s, nil
}

// Set stores msg as the retained message for its topic, replacing any
// existing one. An empty payload deletes the retained message instead,
// matching the MQTT convention that a zero-length retained PUBLISH clears
// retention for that topic.
func (s *Store) Set(ctx context.Context, msg *Message) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}

	if len(msg.Payload) == 0 {
		delete(s.entries, msg.Topic)
		if s.backend != nil {
			return s.backend.Delete(ctx, msg.Topic)
		}
		return nil
	}

	s.entries[msg.Topic] = msg
	if s.backend != nil {
		return s.backend.Save(ctx, msg.Topic, msg)
	}
	return nil
}

// Get returns the retained message for an exact topic, or nil if none is
// retained or it has expired.
func (s *Store) Get(topic string) *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.entries[topic]
	if !ok || msg.expired(time.Now()) {
		return nil
	}
	return msg
}

// Delete removes the retained message for topic, if any.
func (s *Store) Delete(ctx context.Context, topic string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}

	delete(s.entries, topic)
	if s.backend != nil {
		return s.backend.Delete(ctx, topic)
	}
	return nil
}

// Match returns every non-expired retained message whose topic matches
// filter (which may contain "+"/"#" wildcards), for delivery at
// SUBSCRIBE time.
func (s *Store) Match(filter string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var matched []*Message
	for topic, msg := range s.entries {
		if msg.expired(now) {
			continue
		}
		if filterMatches(filter, topic) {
			matched = append(matched, msg)
		}
	}
	return matched
}

// Count returns the number of retained messages currently held (expired
// entries are not lazily swept, so this may include some that would be
// skipped by Get/Match until the next Set/Delete touches them).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close closes the store and its backend, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}
	s.closed = true
	s.entries = nil

	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}

// filterMatches reports whether topic matches the subscription filter,
// honoring "+" (one level) and "#" (remaining levels). $-prefixed topics
// only match a filter that itself starts with "$" in its first level —
// a bare "#" or "+" at the root never matches a system topic.
func filterMatches(filter, topic string) bool {
	filterLevels := splitLevels(filter)
	topicLevels := splitLevels(topic)

	if len(topicLevels) > 0 && strings.HasPrefix(topicLevels[0], "$") {
		if len(filterLevels) == 0 || filterLevels[0] == "#" || filterLevels[0] == "+" {
			return false
		}
	}

	i := 0
	for i < len(filterLevels) {
		level := filterLevels[i]

		if level == "#" {
			return true
		}

		if i >= len(topicLevels) {
			return false
		}

		if level != "+" && level != topicLevels[i] {
			return false
		}

		i++
	}

	return i == len(topicLevels)
}

func splitLevels(topic string) []string {
	if len(topic) == 0 {
		return []string{}
	}

	levels := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(topic); i++ {
		if topic[i] == '/' {
			levels = append(levels, topic[start:i])
			start = i + 1
		}
	}
	levels = append(levels, topic[start:])
	return levels
}
