package project

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SyntheticPrefix marks ids of generated projects.
const SyntheticPrefix = "ai-"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID generates a catalog ULID.
func NewID() string {
	return newULID().String()
}

// NewSyntheticID generates an id for a generated project. It never collides
// with catalog ids, which are uppercase ULIDs without a prefix.
func NewSyntheticID() string {
	return SyntheticPrefix + strings.ToLower(newULID().String())
}

// IsSynthetic reports whether id belongs to a generated project.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}

func newULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
