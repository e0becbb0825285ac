// Package gate drops repeated raw submissions before they reach extraction.
//
// Capture sources frequently fire the same notification several times in a
// row. The gate remembers a content hash of every admitted payload for a fixed
// TTL measured from first admission; reads never extend it.
//
// Example usage:
//
//	g := gate.New(gate.DefaultTTL)
//	if !g.ShouldAccept(payload) {
//		return ErrDuplicatePayload
//	}
package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTTL is how long a payload hash blocks identical submissions
const DefaultTTL = 5 * time.Minute

// Gate is a concurrent TTL set of payload hashes
type Gate struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map // hash -> time.Time (insertion)
}

// Option configures a Gate
type Option func(*Gate)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New creates a gate. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Gate{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldAccept returns true when the payload has not been seen within the TTL
// and records it; false otherwise. The check and the insert are a single atomic
// step per hash, so concurrent callers with equal payloads admit exactly one.
func (g *Gate) ShouldAccept(payload []byte) bool {
	now := g.now()
	g.evictExpired(now)

	key := Hash(payload)
	for {
		prev, loaded := g.entries.LoadOrStore(key, now)
		if !loaded {
			return true
		}
		insertedAt := prev.(time.Time)
		if now.Sub(insertedAt) < g.ttl {
			return false
		}
		// Expired but not yet evicted: replace only if nobody beat us to it.
		if g.entries.CompareAndSwap(key, prev, now) {
			return true
		}
	}
}

// Len returns the number of live hashes, expired ones included until the next
// eviction pass.
func (g *Gate) Len() int {
	n := 0
	g.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (g *Gate) evictExpired(now time.Time) {
	g.entries.Range(func(key, value any) bool {
		if now.Sub(value.(time.Time)) >= g.ttl {
			g.entries.CompareAndDelete(key, value)
		}
		return true
	})
}

// Hash returns the hex digest used as the gate key
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
