package filter

import (
	"github.com/plus3/keepsake/snapshot"
)

// TypeFilter decides which type keys are eligible. It has a default (allow or
// deny) and an explicit set of overrides; an explicit entry always wins.
// The zero value denies every key.
type TypeFilter struct {
	allowByDefault bool
	overrides      map[snapshot.TypeKey]bool
}

// AllowAll returns a filter admitting every key not explicitly denied.
func AllowAll() *TypeFilter {
	return &TypeFilter{allowByDefault: true, overrides: make(map[snapshot.TypeKey]bool)}
}

// DenyAll returns a filter rejecting every key not explicitly allowed.
func DenyAll() *TypeFilter {
	return &TypeFilter{overrides: make(map[snapshot.TypeKey]bool)}
}

// Allow explicitly admits keys.
func (f *TypeFilter) Allow(keys ...snapshot.TypeKey) *TypeFilter {
	f.init()
	for _, key := range keys {
		f.overrides[key] = true
	}
	return f
}

// Deny explicitly rejects keys.
func (f *TypeFilter) Deny(keys ...snapshot.TypeKey) *TypeFilter {
	f.init()
	for _, key := range keys {
		f.overrides[key] = false
	}
	return f
}

func (f *TypeFilter) init() {
	if f.overrides == nil {
		f.overrides = make(map[snapshot.TypeKey]bool)
	}
}

// Allows reports whether key is eligible.
func (f *TypeFilter) Allows(key snapshot.TypeKey) bool {
	if allowed, ok := f.overrides[key]; ok {
		return allowed
	}
	return f.allowByDefault
}
