// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/oklog/ulid/v2"
)

const maxEventsPerPage = 1024

var (
	journalMetaPrefix  = []byte("meta")
	journalEntryPrefix = []byte("entry")

	lastEventKey = []byte("last")

	errEventIDOverflow = errors.New("event id overflow")

	_ EventJournal = (*eventJournal)(nil)
)

// EventJournal persists the events of committed calls in ULID order.
type EventJournal interface {
	// Append assigns IDs and timestamps to [events] and stores them. Every
	// assigned ID sorts after all previously journaled IDs, even if [now] is
	// earlier than the time of the last append.
	Append(events []Event, now time.Time) ([]Event, error)
	// Events returns up to [limit] events journaled after [after]. The zero
	// ULID starts from the beginning of the journal.
	Events(after ulid.ULID, limit int) ([]Event, error)
}

type eventJournal struct {
	metaDB  database.Database
	eventDB database.Database
	entropy io.Reader
}

func NewEventJournal(db database.Database) EventJournal {
	return &eventJournal{
		metaDB:  prefixdb.New(journalMetaPrefix, db),
		eventDB: prefixdb.New(journalEntryPrefix, db),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (j *eventJournal) lastID() (ulid.ULID, error) {
	idBytes, err := j.metaDB.Get(lastEventKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ulid.ULID{}, nil
	case err != nil:
		return ulid.ULID{}, fmt.Errorf("failed to get last event id: %w", err)
	}
	var id ulid.ULID
	if err := id.UnmarshalBinary(idBytes); err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: last event id: %w", ErrFailedToDecode, err)
	}
	return id, nil
}

// nextID returns a fresh ULID for [now] that sorts strictly after [last].
// The timestamp never moves backwards past the one of [last].
func (j *eventJournal) nextID(last ulid.ULID, now time.Time) (ulid.ULID, error) {
	ms := ulid.Timestamp(now)
	if lastMS := last.Time(); ms < lastMS {
		ms = lastMS
	}
	id, err := ulid.New(ms, j.entropy)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("failed to generate event id: %w", err)
	}
	if id.Compare(last) > 0 {
		return id, nil
	}
	return increment(last)
}

// increment returns the ULID directly after [id].
func increment(id ulid.ULID) (ulid.ULID, error) {
	next := id
	for i := len(next) - 1; i >= 6; i-- {
		next[i]++
		if next[i] != 0 {
			return next, nil
		}
	}
	// The random part wrapped, so move to the next millisecond.
	if err := next.SetTime(id.Time() + 1); err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: %w", errEventIDOverflow, err)
	}
	return next, nil
}

func (j *eventJournal) Append(events []Event, now time.Time) ([]Event, error) {
	if len(events) == 0 {
		return []Event{}, nil
	}
	last, err := j.lastID()
	if err != nil {
		return nil, err
	}

	journaled := make([]Event, 0, len(events))
	for _, event := range events {
		id, err := j.nextID(last, now)
		if err != nil {
			return nil, err
		}
		event.ID = id
		event.Timestamp = now.Unix()

		eventBytes, err := Codec.Marshal(CodecVersion, &event)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s event: %w", event.Kind, err)
		}
		if err := j.eventDB.Put(id[:], eventBytes); err != nil {
			return nil, fmt.Errorf("failed to journal %s event: %w", event.Kind, err)
		}
		journaled = append(journaled, event)
		last = id
	}
	if err := j.metaDB.Put(lastEventKey, last[:]); err != nil {
		return nil, fmt.Errorf("failed to put last event id: %w", err)
	}
	return journaled, nil
}

func (j *eventJournal) Events(after ulid.ULID, limit int) ([]Event, error) {
	if limit <= 0 || limit > maxEventsPerPage {
		limit = maxEventsPerPage
	}

	it := j.eventDB.NewIteratorWithStart(after[:])
	defer it.Release()

	var events []Event
	for len(events) < limit && it.Next() {
		if bytes.Equal(it.Key(), after[:]) {
			continue
		}
		event := Event{}
		if _, err := Codec.Unmarshal(it.Value(), &event); err != nil {
			return nil, fmt.Errorf("%w: event %x: %w", ErrFailedToDecode, it.Key(), err)
		}
		copy(event.ID[:], it.Key())
		events = append(events, event)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
