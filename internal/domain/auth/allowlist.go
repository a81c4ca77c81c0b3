package auth

import (
	"slices"
	"strings"
)

// Allowlist is the normalized set of principals allowed into the admin panel.
// The zero value is empty and admits nobody.
type Allowlist struct {
	members map[string]struct{}
}

// ParseAllowlist normalizes a comma-separated list of email addresses.
// Entries are trimmed and lowercased; empty entries are dropped.
func ParseAllowlist(raw string) Allowlist {
	return NewAllowlist(strings.Split(raw, ","))
}

// NewAllowlist builds an allow-list from individual entries, normalizing each.
func NewAllowlist(entries []string) Allowlist {
	members := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if n := NormalizeEmail(e); n != "" {
			members[n] = struct{}{}
		}
	}
	return Allowlist{members: members}
}

// NormalizeEmail trims surrounding whitespace and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Contains reports case-insensitive membership. An empty list contains nothing.
func (a Allowlist) Contains(email string) bool {
	n := NormalizeEmail(email)
	if n == "" || len(a.members) == 0 {
		return false
	}
	_, ok := a.members[n]
	return ok
}

// Empty reports whether the list has no members.
func (a Allowlist) Empty() bool { return len(a.members) == 0 }

// Len returns the number of distinct members.
func (a Allowlist) Len() int { return len(a.members) }

// Members returns the normalized entries in sorted order.
func (a Allowlist) Members() []string {
	out := make([]string, 0, len(a.members))
	for m := range a.members {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
