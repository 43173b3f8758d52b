// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore(t *testing.T) {
	assert := assert.New(t)
	kv := NewKVStore(memdb.New())

	value, err := kv.Get([]byte("k"))
	assert.NoError(err)
	assert.True(value.IsNothing())

	assert.NoError(kv.Set([]byte("k"), maybe.Some([]byte("v"))))
	value, err = kv.Get([]byte("k"))
	assert.NoError(err)
	assert.Equal([]byte("v"), value.Value())

	// Present but empty is not absent.
	assert.NoError(kv.Set([]byte("empty"), maybe.Some([]byte{})))
	value, err = kv.Get([]byte("empty"))
	assert.NoError(err)
	assert.True(value.HasValue())
	assert.Empty(value.Value())

	assert.NoError(kv.Set([]byte("k"), maybe.Nothing[[]byte]()))
	value, err = kv.Get([]byte("k"))
	assert.NoError(err)
	assert.True(value.IsNothing())
}

func TestStateNamespacesAreDisjoint(t *testing.T) {
	require := require.New(t)
	s := NewState(memdb.New())

	// Write application keys that look like queue counters and entries.
	for _, key := range [][]byte{queueHeadKey, queueTailKey, indexKey(0), []byte("meta"), []byte("entry")} {
		require.NoError(s.KV().Set(key, maybe.Some([]byte{0xff, 0xff, 0xff, 0xff})))
	}

	head, err := s.Head()
	require.NoError(err)
	require.Zero(head)
	tail, err := s.Tail()
	require.NoError(err)
	require.Zero(tail)
	_, err = s.GetEntry(0)
	require.ErrorIs(err, database.ErrNotFound)

	value, err := s.App().Get(queueHeadKey)
	require.NoError(err)
	require.True(value.IsNothing())
}

func TestStateAbort(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	s := NewState(db)

	require.NoError(s.KV().Set([]byte("k"), maybe.Some([]byte("v"))))
	require.NoError(s.PutEntry(0, &QueueEntry{Payload: []byte("m")}))
	require.NoError(s.SetTail(1))
	s.Abort()

	value, err := s.KV().Get([]byte("k"))
	require.NoError(err)
	require.True(value.IsNothing())
	_, err = s.GetEntry(0)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(s.KV().Set([]byte("k"), maybe.Some([]byte("v"))))
	require.NoError(s.Commit())

	// Committed writes are visible to a fresh view of the same database.
	value, err = NewState(db).KV().Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), value.Value())
}

func TestQueueStateCorruptEntry(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	s := NewQueueState(db)

	// The entry namespace is nested below the queue namespace.
	require.NoError(s.PutEntry(3, &QueueEntry{Payload: []byte("ok")}))
	s.ClearCache()
	entry, err := s.GetEntry(3)
	require.NoError(err)
	require.Equal([]byte("ok"), entry.Payload)

	qs := s.(*queueState)
	require.NoError(qs.entryDB.Put(indexKey(4), []byte{0x01}))
	_, err = s.GetEntry(4)
	require.ErrorIs(err, ErrFailedToDecode)
}

func TestNonceState(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	s := NewNonceState(db)
	account := ids.ShortID{1}

	nonce, err := s.Nonce(account)
	require.NoError(err)
	require.Zero(nonce)

	require.NoError(s.SetNonce(account, 7))
	nonce, err = s.Nonce(account)
	require.NoError(err)
	require.Equal(uint64(7), nonce)

	require.NoError(db.Put(account[:], []byte{1, 2, 3}))
	_, err = s.Nonce(account)
	require.ErrorIs(err, ErrFailedToDecode)
}

func TestSingletonState(t *testing.T) {
	require := require.New(t)
	s := NewSingletonState(memdb.New())

	initialized, err := s.IsInitialized()
	require.NoError(err)
	require.False(initialized)
	require.NoError(s.SetInitialized())
	initialized, err = s.IsInitialized()
	require.NoError(err)
	require.True(initialized)

	owner, err := s.Owner()
	require.NoError(err)
	require.True(owner.IsNothing())

	require.NoError(s.SetOwner(maybe.Some(ids.ShortID{9})))
	owner, err = s.Owner()
	require.NoError(err)
	require.Equal(ids.ShortID{9}, owner.Value())

	require.NoError(s.SetOwner(maybe.Nothing[ids.ShortID]()))
	owner, err = s.Owner()
	require.NoError(err)
	require.True(owner.IsNothing())
}

func TestEventJournal(t *testing.T) {
	require := require.New(t)
	j := NewEventJournal(memdb.New())
	now := time.Unix(1_700_000_000, 0)

	first, err := j.Append([]Event{
		{Kind: MessageQueuedEvent, Index: 0, Data: []byte("a")},
		{Kind: MessageQueuedEvent, Index: 1, Data: []byte("b")},
	}, now)
	require.NoError(err)
	require.Len(first, 2)
	second, err := j.Append([]Event{{Kind: MessageProcessedEvent, Index: 2}}, now)
	require.NoError(err)

	all, err := j.Events(ulid.ULID{}, 0)
	require.NoError(err)
	require.Len(all, 3)
	require.Equal(first[0].ID, all[0].ID)
	require.Equal(first[1].ID, all[1].ID)
	require.Equal(second[0].ID, all[2].ID)
	require.Equal([]byte("b"), all[1].Data)
	require.Equal(now.Unix(), all[2].Timestamp)

	page, err := j.Events(all[0].ID, 1)
	require.NoError(err)
	require.Len(page, 1)
	require.Equal(all[1].ID, page[0].ID)

	page, err = j.Events(all[2].ID, 10)
	require.NoError(err)
	require.Empty(page)
}

func TestEventJournalOrderAcrossRestart(t *testing.T) {
	require := require.New(t)
	db := memdb.New()
	now := time.Unix(1_700_000_000, 0)

	first, err := NewEventJournal(db).Append([]Event{{Kind: MessageQueuedEvent}}, now)
	require.NoError(err)

	// A fresh journal has no in-memory entropy state and an earlier clock.
	second, err := NewEventJournal(db).Append([]Event{
		{Kind: MessageQueuedEvent, Index: 1},
		{Kind: MessageQueuedEvent, Index: 2},
	}, now.Add(-time.Hour))
	require.NoError(err)
	require.Equal(first[0].ID.Time(), second[0].ID.Time())
	require.Positive(second[0].ID.Compare(first[0].ID))
	require.Positive(second[1].ID.Compare(second[0].ID))

	events, err := NewEventJournal(db).Events(first[0].ID, 10)
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(second[0].ID, events[0].ID)
	require.Equal(second[1].ID, events[1].ID)
}

func TestIncrementEventID(t *testing.T) {
	require := require.New(t)

	var id ulid.ULID
	require.NoError(id.SetTime(5))
	next, err := increment(id)
	require.NoError(err)
	require.Equal(uint64(5), next.Time())
	require.Equal(byte(1), next[15])

	for i := 6; i < len(id); i++ {
		id[i] = 0xff
	}
	next, err = increment(id)
	require.NoError(err)
	require.Equal(uint64(6), next.Time())
	require.Equal(ulid.ULID{}.Entropy(), next.Entropy())
}
