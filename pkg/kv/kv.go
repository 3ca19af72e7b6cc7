// Package kv provides a key-value store abstraction with hierarchical
// path-based keys.
//
// Keys are represented as []string segments (e.g., {"run", "abc123"}) and
// encoded to bytes with a configurable separator (default ':'). List walks
// every entry under a key prefix in lexicographic key order.
package kv

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical key represented as path segments.
type Key []string

// String returns the key with segments joined by the default separator.
func (k Key) String() string {
	return strings.Join(k, string(DefaultSeparator))
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the interface for a key-value store with hierarchical keys.
type Store interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a value for the given key, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// List iterates over all entries whose key starts with prefix, in
	// lexicographic key order. A prefix matches whole segments only:
	// {"turn", "r1"} does not match {"turn", "r10", ...}.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// DefaultSeparator is the byte used to join key segments.
const DefaultSeparator byte = ':'

// Options configures a Store implementation.
type Options struct {
	// Separator is the byte used to join key segments. Defaults to ':'.
	// Key segments must not contain this byte.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

// encode converts a Key to its byte representation.
func (o *Options) encode(k Key) []byte {
	if len(k) == 0 {
		return nil
	}
	return []byte(strings.Join(k, string(o.sep())))
}

// decode converts a byte representation back to a Key.
func (o *Options) decode(b []byte) Key {
	if len(b) == 0 {
		return nil
	}
	parts := bytes.Split(b, []byte{o.sep()})
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = string(p)
	}
	return k
}

// prefixBytes returns the encoded prefix with a trailing separator, or nil
// for an empty prefix.
func (o *Options) prefixBytes(prefix Key) []byte {
	p := o.encode(prefix)
	if len(p) == 0 {
		return nil
	}
	return append(p, o.sep())
}
