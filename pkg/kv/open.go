package kv

import (
	"errors"
	"fmt"
	"strings"
)

// Open opens a store from a URL like "badger:///path" or "memory://".
// Badger stores opened this way log nothing.
func Open(url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "badger://"):
		dir := strings.TrimPrefix(url, "badger://")
		if dir == "" {
			return nil, errors.New("kv: badger URL needs a directory")
		}
		return NewBadger(BadgerOptions{
			Dir:     dir,
			Options: &Options{},
			Logger:  silentLogger{},
		})
	case url == "memory://":
		return NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("kv: unsupported URL scheme: %s", url)
	}
}
