// Package transcript archives the committed turns of each conversation run.
//
// Records are msgpack-encoded into a kv.Store under hierarchical keys:
//
//	{"run", run_id}                -> Run
//	{"turn", run_id, "00000042"}   -> Record
//
// Turn numbers are zero-padded so that the lexicographic key order of the
// kv store is also the turn order. The archive is write-only from the
// conversation's point of view: nothing here is ever used to restore a
// running conversation.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/MiniPandi/LLMC/pkg/kv"
)

// ErrNotFound is returned when a run does not exist in the archive.
var ErrNotFound = errors.New("transcript: not found")

// Run describes one conversation run.
type Run struct {
	ID           string    `msgpack:"id" json:"id" yaml:"id"`
	StartedAt    time.Time `msgpack:"started_at" json:"started_at" yaml:"started_at"`
	ModelA       string    `msgpack:"model_a" json:"model_a" yaml:"model_a"`
	ModelB       string    `msgpack:"model_b" json:"model_b" yaml:"model_b"`
	SystemPrompt string    `msgpack:"system_prompt" json:"system_prompt" yaml:"system_prompt"`
	Opener       string    `msgpack:"opener,omitempty" json:"opener,omitempty" yaml:"opener,omitempty"`
}

// Record is one committed turn.
type Record struct {
	RunID       string    `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	Turn        int       `msgpack:"turn" json:"turn" yaml:"turn"`
	Participant int       `msgpack:"participant" json:"participant" yaml:"participant"`
	Model       string    `msgpack:"model" json:"model" yaml:"model"`
	Content     string    `msgpack:"content" json:"content" yaml:"content"`
	CreatedAt   time.Time `msgpack:"created_at" json:"created_at" yaml:"created_at"`
}

// Store is a transcript archive.
type Store interface {
	// BeginRun records the start of a run. Calling it again for the same
	// id overwrites the run header and keeps its turns.
	BeginRun(ctx context.Context, run Run) error

	// Append records a committed turn.
	Append(ctx context.Context, rec Record) error

	// Runs lists all runs, oldest first.
	Runs(ctx context.Context) ([]Run, error)

	// Records lists a run's turns in turn order. Returns ErrNotFound if
	// the run does not exist.
	Records(ctx context.Context, runID string) ([]Record, error)

	// Close releases the store.
	Close() error
}

// Archive is a Store over a kv.Store.
type Archive struct {
	kv kv.Store
}

var _ Store = (*Archive)(nil)

// New returns an Archive that keeps its records in s. Closing the Archive
// closes s.
func New(s kv.Store) *Archive {
	return &Archive{kv: s}
}

// NewMemory returns an Archive over an in-process kv store. Its contents
// are lost when the process exits.
func NewMemory() *Archive {
	return New(kv.NewMemory(nil))
}

// Open opens an Archive from a kv URL: "memory://" or "badger:///path/to/dir".
func Open(url string) (*Archive, error) {
	s, err := kv.Open(url)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	return New(s), nil
}

func (a *Archive) BeginRun(ctx context.Context, run Run) error {
	if err := validateRunID(run.ID); err != nil {
		return err
	}
	data, err := encode(run)
	if err != nil {
		return err
	}
	return a.kv.Set(ctx, runKey(run.ID), data)
}

func (a *Archive) Append(ctx context.Context, rec Record) error {
	if err := validateRunID(rec.RunID); err != nil {
		return err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}
	return a.kv.Set(ctx, turnKey(rec.RunID, rec.Turn), data)
}

func (a *Archive) Runs(ctx context.Context) ([]Run, error) {
	runs, err := list[Run](ctx, a.kv, kv.Key{runSegment})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(runs, func(x, y Run) int {
		return x.StartedAt.Compare(y.StartedAt)
	})
	return runs, nil
}

func (a *Archive) Records(ctx context.Context, runID string) ([]Record, error) {
	if err := validateRunID(runID); err != nil {
		return nil, ErrNotFound
	}
	if _, err := a.kv.Get(ctx, runKey(runID)); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	recs, err := list[Record](ctx, a.kv, kv.Key{turnSegment, runID})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

func (a *Archive) Close() error {
	return a.kv.Close()
}

const (
	runSegment  = "run"
	turnSegment = "turn"
)

func runKey(id string) kv.Key {
	return kv.Key{runSegment, id}
}

func turnKey(runID string, turn int) kv.Key {
	return kv.Key{turnSegment, runID, fmt.Sprintf("%08d", turn)}
}

func validateRunID(id string) error {
	if id == "" {
		return errors.New("transcript: empty run id")
	}
	if strings.ContainsRune(id, rune(kv.DefaultSeparator)) {
		return fmt.Errorf("transcript: run id %q must not contain %q", id, kv.DefaultSeparator)
	}
	return nil
}

// list decodes every value under prefix, in key order.
func list[T any](ctx context.Context, s kv.Store, prefix kv.Key) ([]T, error) {
	var out []T
	for e, err := range s.List(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		v, err := decode[T](e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("transcript: encode: %w", err)
	}
	return data, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("transcript: decode: %w", err)
	}
	return v, nil
}
