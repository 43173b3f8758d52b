// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

var _ NonceState = (*nonceState)(nil)

// NonceState is the per-account meta transaction nonce table. An account
// without an entry has nonce 0.
type NonceState interface {
	Nonce(account ids.ShortID) (uint64, error)
	SetNonce(account ids.ShortID, nonce uint64) error
}

type nonceState struct {
	nonceDB database.Database
}

func NewNonceState(db database.Database) NonceState {
	return &nonceState{nonceDB: db}
}

func (s *nonceState) Nonce(account ids.ShortID) (uint64, error) {
	nonceBytes, err := s.nonceDB.Get(account[:])
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to get nonce of %s: %w", account, err)
	case len(nonceBytes) != wrappers.LongLen:
		return 0, fmt.Errorf("%w: nonce of %s has length %d", ErrFailedToDecode, account, len(nonceBytes))
	}
	return binary.BigEndian.Uint64(nonceBytes), nil
}

func (s *nonceState) SetNonce(account ids.ShortID, nonce uint64) error {
	nonceBytes := make([]byte, wrappers.LongLen)
	binary.BigEndian.PutUint64(nonceBytes, nonce)
	return s.nonceDB.Put(account[:], nonceBytes)
}
