// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	entryCacheSize = 1024
)

var (
	queueMetaPrefix  = []byte("meta")
	queueEntryPrefix = []byte("entry")

	queueHeadKey = []byte("head")
	queueTailKey = []byte("tail")

	errEntryWrongVersion = errors.New("wrong queue entry version")

	_ QueueState = (*queueState)(nil)
)

// QueueEntry is the persisted form of a queued message.
type QueueEntry struct {
	Payload  []byte `serialize:"true"`
	Enqueued int64  `serialize:"true"`
}

func (e *QueueEntry) clone() *QueueEntry {
	return &QueueEntry{
		Payload:  slices.Clone(e.Payload),
		Enqueued: e.Enqueued,
	}
}

// QueueState persists the queue counters and its entries. Counters are typed
// fields in their own namespace, disjoint from the entries.
type QueueState interface {
	Head() (uint32, error)
	SetHead(index uint32) error
	Tail() (uint32, error)
	SetTail(index uint32) error

	// GetEntry returns database.ErrNotFound if there is no entry at [index].
	// The returned entry is owned by the caller.
	GetEntry(index uint32) (*QueueEntry, error)
	PutEntry(index uint32, entry *QueueEntry) error
	DeleteEntry(index uint32) error

	ClearCache()
}

type queueState struct {
	entryCache *cache.LRU[uint32, *QueueEntry]
	metaDB     database.Database
	entryDB    database.Database
}

func NewQueueState(db database.Database) QueueState {
	return &queueState{
		entryCache: &cache.LRU[uint32, *QueueEntry]{Size: entryCacheSize},
		metaDB:     prefixdb.New(queueMetaPrefix, db),
		entryDB:    prefixdb.New(queueEntryPrefix, db),
	}
}

func indexKey(index uint32) []byte {
	key := make([]byte, wrappers.IntLen)
	binary.BigEndian.PutUint32(key, index)
	return key
}

func (s *queueState) getCounter(key []byte) (uint32, error) {
	counterBytes, err := s.metaDB.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to get queue %s: %w", key, err)
	case len(counterBytes) != wrappers.IntLen:
		return 0, fmt.Errorf("%w: queue %s has length %d", ErrFailedToDecode, key, len(counterBytes))
	}
	return binary.BigEndian.Uint32(counterBytes), nil
}

func (s *queueState) Head() (uint32, error) { return s.getCounter(queueHeadKey) }

func (s *queueState) SetHead(index uint32) error {
	return s.metaDB.Put(queueHeadKey, indexKey(index))
}

func (s *queueState) Tail() (uint32, error) { return s.getCounter(queueTailKey) }

func (s *queueState) SetTail(index uint32) error {
	return s.metaDB.Put(queueTailKey, indexKey(index))
}

func (s *queueState) GetEntry(index uint32) (*QueueEntry, error) {
	if entry, ok := s.entryCache.Get(index); ok {
		return entry.clone(), nil
	}

	entryBytes, err := s.entryDB.Get(indexKey(index))
	if err != nil {
		return nil, err
	}

	entry := &QueueEntry{}
	parsedVersion, err := Codec.Unmarshal(entryBytes, entry)
	if err != nil {
		return nil, fmt.Errorf("%w: queue entry %d: %w", ErrFailedToDecode, index, err)
	}
	if parsedVersion != CodecVersion {
		return nil, fmt.Errorf("%w: queue entry %d: %w", ErrFailedToDecode, index, errEntryWrongVersion)
	}

	s.entryCache.Put(index, entry)
	return entry.clone(), nil
}

func (s *queueState) PutEntry(index uint32, entry *QueueEntry) error {
	entryBytes, err := Codec.Marshal(CodecVersion, entry)
	if err != nil {
		return err
	}

	s.entryCache.Put(index, entry.clone())
	return s.entryDB.Put(indexKey(index), entryBytes)
}

func (s *queueState) DeleteEntry(index uint32) error {
	s.entryCache.Evict(index)
	return s.entryDB.Delete(indexKey(index))
}

func (s *queueState) ClearCache() {
	s.entryCache.Flush()
}
