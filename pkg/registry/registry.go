// Package registry tracks which origin AS currently owns each announced prefix.
package registry

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/gaissmai/bart"
)

// Entry is the most recently accepted claim for an exact prefix.
type Entry struct {
	Prefix    string // as it was announced
	OriginASN uint32
	Timestamp float64
}

// Registry maps exact prefixes to their owner and answers covering-prefix
// queries. Not safe for concurrent use; each detection run owns one.
type Registry struct {
	table bart.Table[Entry]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// ParsePrefix parses a CIDR string and masks off host bits, so equivalent
// spellings of the same range map to the same entry.
func ParsePrefix(s string) (netip.Prefix, error) {
	pfx, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parse prefix %q: %w", s, err)
	}
	return pfx.Masked(), nil
}

// LookupCovering returns the entry whose prefix equals pfx or is the most
// specific registered supernet of it.
func (r *Registry) LookupCovering(pfx netip.Prefix) (Entry, bool) {
	_, entry, ok := r.table.LookupPrefixLPM(pfx.Masked())
	return entry, ok
}

// Upsert records origin as the owner of exactly pfx, replacing any earlier owner.
func (r *Registry) Upsert(pfx netip.Prefix, prefix string, origin uint32, ts float64) {
	r.table.Insert(pfx.Masked(), Entry{Prefix: prefix, OriginASN: origin, Timestamp: ts})
}

// Remove deletes the entry for exactly pfx and reports whether one existed.
func (r *Registry) Remove(pfx netip.Prefix) bool {
	_, found := r.table.Delete(pfx.Masked())
	return found
}

// Len returns the number of registered prefixes.
func (r *Registry) Len() int {
	return r.table.Size()
}
