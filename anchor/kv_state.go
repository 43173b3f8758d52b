// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"errors"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

var _ KVStore = (*kvState)(nil)

// KVStore is a byte-keyed persistent map. Setting Nothing deletes the key.
type KVStore interface {
	Get(key []byte) (maybe.Maybe[[]byte], error)
	Set(key []byte, value maybe.Maybe[[]byte]) error
}

type kvState struct {
	db database.Database
}

func NewKVStore(db database.Database) KVStore {
	return &kvState{db: db}
}

func (s *kvState) Get(key []byte) (maybe.Maybe[[]byte], error) {
	value, err := s.db.Get(key)
	switch {
	case err == nil:
		return maybe.Some(value), nil
	case errors.Is(err, database.ErrNotFound):
		return maybe.Nothing[[]byte](), nil
	default:
		return maybe.Nothing[[]byte](), err
	}
}

func (s *kvState) Set(key []byte, value maybe.Maybe[[]byte]) error {
	if value.IsNothing() {
		return s.db.Delete(key)
	}
	return s.db.Put(key, value.Value())
}
