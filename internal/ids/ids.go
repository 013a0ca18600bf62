// Package ids generates ULIDs that sort in creation order within the process.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID strictly greater than every ULID previously returned
// by New in this process.
func New() ulid.ULID {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// NewString is New().String().
func NewString() string {
	return New().String()
}

// Parse validates a ULID string, e.g. a session cookie.
func Parse(s string) (ulid.ULID, bool) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, false
	}
	return id, true
}
