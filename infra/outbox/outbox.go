package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"tickbook/domain/events"
	"tickbook/infra/sequence"
)

var (
	ErrClosed   = errors.New("outbox: closed")
	ErrNotFound = errors.New("outbox: record not found")
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, fmt.Errorf("outbox: record %d: short value (%d bytes)", seq, len(b))
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[headerLen:]...),
	}, nil
}

// -------------------- Outbox --------------------

// Outbox is a pebble-backed queue of engine events waiting to be
// broadcast. The engine appends; the broadcaster drives state.
type Outbox struct {
	db     *pebble.DB
	seq    *sequence.Sequencer
	closed atomic.Bool
}

type options struct {
	fs vfs.FS
}

type Option func(*options)

// WithFS runs pebble on the given filesystem, vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *options) { o.fs = fs }
}

func Open(dir string, opts ...Option) (*Outbox, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := pebble.Open(dir, &pebble.Options{FS: o.fs})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}

	last, err := lastSeq(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Outbox{db: db, seq: sequence.New(last)}, nil
}

func (w *Outbox) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	return w.db.Close()
}

// LastSeq returns the sequence of the newest stored event.
func (w *Outbox) LastSeq() uint64 {
	return w.seq.Current()
}

// -------------------- API --------------------

// Append stores evs as NEW in one synced batch, assigning sequence
// numbers in order. The returned slice carries the assigned Seq values.
func (w *Outbox) Append(evs []events.Event) ([]events.Event, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}
	if len(evs) == 0 {
		return evs, nil
	}

	out := make([]events.Event, len(evs))
	b := w.db.NewBatch()
	defer b.Close()

	for i, e := range evs {
		e.Seq = w.seq.Next()
		payload, err := events.Encode(e)
		if err != nil {
			return nil, err
		}
		if err := b.Set(keyFor(e.Seq), encodeRecord(Record{State: StateNew, Payload: payload}), nil); err != nil {
			return nil, err
		}
		out[i] = e
	}
	if err := b.Set([]byte(metaLastSeq), encodeSeq(out[len(out)-1].Seq), nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("outbox: commit: %w", err)
	}
	return out, nil
}

// Get returns the current record for seq.
func (w *Outbox) Get(seq uint64) (Record, error) {
	if w.closed.Load() {
		return Record{}, ErrClosed
	}
	val, closer, err := w.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// UpdateState moves seq to state, keeping its payload.
func (w *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return w.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes a record.
func (w *Outbox) Delete(seq uint64) error {
	if w.closed.Load() {
		return ErrClosed
	}
	return w.db.Delete(keyFor(seq), pebble.Sync)
}

// -------------------- Scan --------------------

// ScanByState visits records in any of the given states, oldest first.
func (w *Outbox) ScanByState(
	fn func(rec Record) error,
	states ...State,
) error {
	if w.closed.Load() {
		return ErrClosed
	}

	want := make(map[State]bool, len(states))
	for _, s := range states {
		want[s] = true
	}

	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyUpper),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || !want[State(val[0])] {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// TruncateAcked deletes every ACKED record and reports how many went.
func (w *Outbox) TruncateAcked() (int, error) {
	var acked []uint64
	err := w.ScanByState(func(rec Record) error {
		acked = append(acked, rec.Seq)
		return nil
	}, StateAcked)
	if err != nil || len(acked) == 0 {
		return 0, err
	}

	b := w.db.NewBatch()
	defer b.Close()
	for _, seq := range acked {
		if err := b.Delete(keyFor(seq), nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return len(acked), nil
}

// -------------------- Helpers --------------------

const (
	keyPrefix = "event/"
	keyUpper  = "event/~"

	// metaLastSeq survives truncation so sequences never restart.
	metaLastSeq = "meta/last-seq"
)

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	s := string(b)
	if len(s) <= len(keyPrefix) || s[:len(keyPrefix)] != keyPrefix {
		return 0, fmt.Errorf("outbox: bad key %q", s)
	}
	return strconv.ParseUint(s[len(keyPrefix):], 10, 64)
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func lastSeq(db *pebble.DB) (uint64, error) {
	val, closer, err := db.Get([]byte(metaLastSeq))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("outbox: read last seq: %w", err)
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, fmt.Errorf("outbox: corrupt last seq (%d bytes)", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}
