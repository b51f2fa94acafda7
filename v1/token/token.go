// Package token mints short random identity tags. Tokens only need to be
// collision-resistant enough to tell lock holders apart; they carry no
// cryptographic meaning beyond that.
package token

import (
	"encoding/hex"

	uuid "github.com/hashicorp/go-uuid"
)

// Source produces a random string of the requested length. Locks accept a
// Source so tests can substitute deterministic identities.
type Source func(n int) (string, error)

// New returns a random lowercase hex string of length n.
func New(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b, err := uuid.GenerateRandomBytes((n + 1) / 2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
