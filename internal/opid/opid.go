// Package opid generates identifiers for queued operations and offline
// temporary entities.
package opid

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempPrefix marks ids assigned while offline. A temp id is replaced by the
// remote id once the corresponding add operation syncs.
const TempPrefix = "tmp-"

// Operation ids are time-prefixed so lexical order roughly follows enqueue
// order, with a random suffix to avoid collisions.
var opIDRegex = regexp.MustCompile(`^\d{13,}-[0-9a-f]{8}$`)

// New generates a new operation id.
func New() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewDoc generates a permanent document id for remotely created records.
func NewDoc() string {
	return uuid.NewString()
}

// NewTemp generates a temporary entity id for offline-created records.
func NewTemp() string {
	return TempPrefix + uuid.NewString()
}

// IsTemp reports whether id is a temporary offline id.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// IsValid checks if a string is a well-formed operation id.
func IsValid(s string) bool {
	return opIDRegex.MatchString(s)
}
