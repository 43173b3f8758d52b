// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// Each state component gets its own prefix so that the namespaces never
	// overlap.
	kvStatePrefix        = []byte("kv")
	queueStatePrefix     = []byte("queue")
	roleStatePrefix      = []byte("role")
	nonceStatePrefix     = []byte("nonce")
	singletonStatePrefix = []byte("singleton")
	appStatePrefix       = []byte("app")
	eventStatePrefix     = []byte("event")

	_ State = (*state)(nil)
)

// State composes the anchor's persisted components over a single versioned
// database. Writes are buffered until Commit and dropped by Abort.
type State interface {
	SingletonState
	QueueState
	RoleState
	NonceState
	EventJournal

	// KV is the application visible store used by conditions and updates.
	KV() KVStore
	// App is the store handed to the message handler.
	App() KVStore

	Commit() error
	Abort()
	Close() error
}

type state struct {
	SingletonState
	QueueState
	RoleState
	NonceState
	EventJournal

	kv  KVStore
	app KVStore

	baseDB *versiondb.Database
}

func NewState(db database.Database) State {
	baseDB := versiondb.New(db)

	return &state{
		SingletonState: NewSingletonState(prefixdb.New(singletonStatePrefix, baseDB)),
		QueueState:     NewQueueState(prefixdb.New(queueStatePrefix, baseDB)),
		RoleState:      NewRoleState(prefixdb.New(roleStatePrefix, baseDB)),
		NonceState:     NewNonceState(prefixdb.New(nonceStatePrefix, baseDB)),
		EventJournal:   NewEventJournal(prefixdb.New(eventStatePrefix, baseDB)),
		kv:             NewKVStore(prefixdb.New(kvStatePrefix, baseDB)),
		app:            NewKVStore(prefixdb.New(appStatePrefix, baseDB)),
		baseDB:         baseDB,
	}
}

func (s *state) KV() KVStore { return s.kv }

func (s *state) App() KVStore { return s.app }

// Commit flushes pending operations to the underlying database
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort drops pending operations along with any entries cached from them
func (s *state) Abort() {
	s.baseDB.Abort()
	s.ClearCache()
}

// Close closes the versioned view. The database passed to NewState stays open.
func (s *state) Close() error {
	return s.baseDB.Close()
}
