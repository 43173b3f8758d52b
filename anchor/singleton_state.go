// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

const (
	IsInitializedKey byte = iota
	OwnerKey
)

var (
	isInitializedKey                = []byte{IsInitializedKey}
	ownerKey                        = []byte{OwnerKey}
	_                SingletonState = (*singletonState)(nil)
)

// SingletonState holds the anchor-wide values: whether bootstrap already ran
// and the current owner.
type SingletonState interface {
	IsInitialized() (bool, error)
	SetInitialized() error

	Owner() (maybe.Maybe[ids.ShortID], error)
	SetOwner(owner maybe.Maybe[ids.ShortID]) error
}

type singletonState struct {
	singletonDB database.Database
}

func NewSingletonState(db database.Database) SingletonState {
	return &singletonState{
		singletonDB: db,
	}
}

func (s *singletonState) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

func (s *singletonState) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}

func (s *singletonState) Owner() (maybe.Maybe[ids.ShortID], error) {
	ownerBytes, err := s.singletonDB.Get(ownerKey)
	if errors.Is(err, database.ErrNotFound) {
		return maybe.Nothing[ids.ShortID](), nil
	}
	if err != nil {
		return maybe.Nothing[ids.ShortID](), fmt.Errorf("failed to get owner: %w", err)
	}
	owner, err := ids.ToShortID(ownerBytes)
	if err != nil {
		return maybe.Nothing[ids.ShortID](), fmt.Errorf("%w: owner: %w", ErrFailedToDecode, err)
	}
	return maybe.Some(owner), nil
}

func (s *singletonState) SetOwner(owner maybe.Maybe[ids.ShortID]) error {
	if owner.IsNothing() {
		return s.singletonDB.Delete(ownerKey)
	}
	ownerID := owner.Value()
	return s.singletonDB.Put(ownerKey, ownerID[:])
}
