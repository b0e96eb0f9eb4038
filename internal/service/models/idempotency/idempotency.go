package idempotency

import (
	"errors"
	"time"
)

// ErrDuplicateKey is returned by storage when a record for the key already
// exists. Records are write-once.
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// Record caches the outcome of the one request allowed to run under Key.
type Record struct {
	Key          string
	Fingerprint  string
	ResponseBody []byte
	StatusCode   int
	CreatedAt    time.Time
}

// Matches reports whether fingerprint identifies the request that produced r.
func (r Record) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}
