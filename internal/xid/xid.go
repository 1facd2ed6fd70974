// Package xid generates prefix-tagged identifiers for records that need no
// external coordination. Ids sort roughly by creation time.
package xid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// New returns "<prefix>-<hex nanos>-<hex random>". If the random source is
// unavailable the timestamp alone is used.
func New(prefix string) string {
	now := time.Now().UTC().UnixNano()
	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return fmt.Sprintf("%s-%x", prefix, now)
	}
	return fmt.Sprintf("%s-%x-%x", prefix, now, suffix)
}
