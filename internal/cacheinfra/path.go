package cacheinfra

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Path is a canonical cache key: one string per hop from the root.
type Path []string

// String encodes the path unambiguously so it can be used as a flat map key.
// Each segment is written as <len>:<segment>.
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteString(strconv.Itoa(len(seg)))
		b.WriteByte(':')
		b.WriteString(seg)
	}
	return b.String()
}

// Fingerprint returns a short stable hash of the path, suitable for log fields.
func (p Path) Fingerprint() string {
	return strconv.FormatUint(xxhash.Sum64String(p.String()), 16)
}

// HasPrefix reports whether prefix denotes an ancestor of (or the same node as) p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (p Path) clone() Path {
	return append(Path(nil), p...)
}
