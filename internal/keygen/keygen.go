// Package keygen produces the opaque tokens used for room keys and user codes.
package keygen

import (
	"math/big"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxLen bounds accepted keys. Generated keys are at most 25 characters.
const MaxLen = 64

var validKey = regexp.MustCompile(`^[0-9a-z]+$`)

// NewKey returns a random base-36 token carrying 122 bits of entropy.
// Room keys and user codes share this scheme.
func NewKey() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp if the random source is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return new(big.Int).SetBytes(id[:]).Text(36)
}

// Valid reports whether key is usable as a room key or user code.
func Valid(key string) bool {
	return len(key) > 0 && len(key) <= MaxLen && validKey.MatchString(key)
}
