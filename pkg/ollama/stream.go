package ollama

import "errors"

// ErrDone is returned by Stream.Next when the reply is complete.
var ErrDone = errors.New("ollama: done")

// Fragment is one incremental piece of generated text.
type Fragment struct {
	Content string
}

// Stream is a lazy sequence of fragments. Next returns ErrDone after the
// last fragment; any other error means the reply failed.
type Stream interface {
	Next() (*Fragment, error)
	Close() error
}
