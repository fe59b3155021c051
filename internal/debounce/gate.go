// Package debounce suppresses duplicate user-facing notifications for the
// same logical subject within a cooldown window. Entries live only in
// Redis with a TTL; there is no release operation and no durable record.
package debounce

import (
	"context"
	"log"
	"time"
)

// KV is the subset of the shared key-value store the gate needs. The
// storage Service implements it over Redis SET NX EX.
type KV interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Gate performs atomic test-and-set acquisitions.
//
// FailOpen decides what happens when the store is unreachable: true lets
// the notification through, false suppresses it.
type Gate struct {
	KV       KV
	FailOpen bool
}

func NewGate(kv KV, failOpen bool) *Gate {
	return &Gate{KV: kv, FailOpen: failOpen}
}

// Key builds the composite debounce key.
func Key(purpose, subjectKey string) string {
	return purpose + ":" + subjectKey
}

// Acquire returns true only if this call created the marker: at most one
// successful acquisition per key per window. window <= 0 disables
// debouncing for this call and never contacts the store.
func (g *Gate) Acquire(ctx context.Context, purpose, subjectKey string, window time.Duration) bool {
	if window <= 0 {
		return true
	}

	ok, err := g.KV.SetIfAbsent(ctx, Key(purpose, subjectKey), "1", window)
	if err != nil {
		log.Printf("WARNING: Debounce store unavailable for %s: %v (fail-open=%v)", Key(purpose, subjectKey), err, g.FailOpen)
		return g.FailOpen
	}
	return ok
}
