// Package journal persists the raw feed tape keyed by sequence number.
// It serves the feed-supply side of the house: after a sequence gap the
// operator can inspect what arrived and re-request the missing range.
// Book state is never journaled.
package journal

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores one raw frame under its sequence number. Writes are
// not fsynced per frame; call Sync at checkpoints.
func (j *Journal) Append(seq uint64, frame []byte) error {
	return j.db.Set(keyFor(seq), frame, pebble.NoSync)
}

// Sync flushes buffered appends to disk.
func (j *Journal) Sync() error {
	return j.db.Flush()
}

// Scan visits frames with from <= seq < to in sequence order.
func (j *Journal) Scan(from, to uint64, fn func(seq uint64, frame []byte) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: keyFor(from),
		UpperBound: keyFor(to),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		frame := append([]byte(nil), iter.Value()...)
		if err := fn(seq, frame); err != nil {
			return err
		}
	}
	return iter.Error()
}

// LastSeq returns the highest journaled sequence number.
func (j *Journal) LastSeq() (uint64, bool, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("frame/"),
		UpperBound: []byte("frame/~"),
	})
	if err != nil {
		return 0, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, iter.Error()
	}
	seq, err := parseKey(iter.Key())
	if err != nil {
		return 0, false, err
	}
	return seq, true, nil
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("frame/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("frame/"))), "%d", &seq)
	return seq, err
}
