// Package idempotency derives the keys that make retried provider calls
// safe. Keys are content-addressed: re-driving a saga for the same request
// reproduces the same keys, so a crash-and-replay can never double-charge.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"crossrail/internal/rails"
)

// Manager derives idempotency keys for money-movement attempts. It holds no
// mutable state; two managers with the same namespace are interchangeable.
type Manager struct {
	namespace string
}

// NewManager creates a key manager. The namespace isolates environments
// (staging keys must never collide with production keys at a provider).
func NewManager(namespace string) *Manager {
	return &Manager{namespace: namespace}
}

// KeyFor returns the stable key for one logical money movement. The same
// requestID and step always produce the same key, and retries within the
// step reuse it.
func (m *Manager) KeyFor(requestID, step string) string {
	return m.derive(requestID, step)
}

// KeyForRailAttempt returns a derived-but-distinct key for one rail in a
// push fallback chain. Distinct rails get distinct keys so two providers are
// never conflated; retries within one rail attempt reuse that rail's key.
func (m *Manager) KeyForRailAttempt(requestID, step string, rail rails.Rail) string {
	return m.derive(requestID, step, string(rail))
}

// derive hashes length-prefixed parts so no choice of requestID or step can
// collide with another (requestID, step, rail) triple.
func (m *Manager) derive(parts ...string) string {
	var material strings.Builder
	material.WriteString(strconv.Itoa(len(m.namespace)))
	material.WriteByte(':')
	material.WriteString(m.namespace)
	for _, p := range parts {
		material.WriteString(strconv.Itoa(len(p)))
		material.WriteByte(':')
		material.WriteString(p)
	}
	sum := sha256.Sum256([]byte(material.String()))
	return hex.EncodeToString(sum[:])
}
