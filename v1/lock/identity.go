package lock

import (
	"time"

	"github.com/mirkobrombin/go-softlock/v1/storage"
)

// MasterID is the identity record asserting ownership of one lock slot.
type MasterID struct {
	// Now is the instant the identity was minted.
	Now time.Time `json:"now"`
	// EID is the ephemeral id, scoped to the current process and never
	// persisted in pluggable storage.
	EID string `json:"eid"`
	// SID is the session id, persisted in durable storage and shared across
	// every Lock on the same storage scope. Empty means no durable session.
	SID string `json:"sid"`
}

// Wrapped is the storage envelope around a MasterID. A nil Value marks the
// slot released. The nonce is minted fresh on every store so consecutive
// writes are observably distinct even when the identity is unchanged, which
// keeps the read-back verification honest.
type Wrapped struct {
	Value *MasterID `json:"value"`
	Nonce string    `json:"nonce"`
}

// sameOwner reports whether two identities denote the same logical caller:
// equal ephemeral ids and equal, non-empty session ids. Two identities
// without a durable session never match.
func sameOwner(a, b *MasterID) bool {
	if a == nil || b == nil {
		return false
	}
	return a.EID == b.EID && a.SID == b.SID && a.SID != ""
}

// decodeWrapped re-shapes a dynamic stored value into a Wrapped. Anything
// that does not decode, raw corrupted text included, counts as no record.
func decodeWrapped(v any) *Wrapped {
	if v == nil {
		return nil
	}
	var w Wrapped
	if err := storage.Decode(v, &w); err != nil {
		return nil
	}
	return &w
}
