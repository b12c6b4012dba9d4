// Package ids issues ULID identifiers for rows and requests.
package ids

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(crand.Reader, 0)
)

// New returns a lexicographically sortable identifier stamped with the current time.
func New() string { return NewAt(time.Now()) }

// NewAt stamps the identifier with t so rows created under an injected clock
// still sort by creation time.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
