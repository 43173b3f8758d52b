// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"encoding/binary"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

var _ RoleState = (*roleState)(nil)

// RoleState is the persisted (account, role) membership set.
type RoleState interface {
	HasRole(role Role, account ids.ShortID) (bool, error)
	AddRole(role Role, account ids.ShortID) error
	RemoveRole(role Role, account ids.ShortID) error
}

type roleState struct {
	roleDB database.Database
}

func NewRoleState(db database.Database) RoleState {
	return &roleState{roleDB: db}
}

func roleKey(role Role, account ids.ShortID) []byte {
	key := make([]byte, ids.ShortIDLen+wrappers.IntLen)
	copy(key, account[:])
	binary.BigEndian.PutUint32(key[ids.ShortIDLen:], uint32(role))
	return key
}

func (s *roleState) HasRole(role Role, account ids.ShortID) (bool, error) {
	return s.roleDB.Has(roleKey(role, account))
}

func (s *roleState) AddRole(role Role, account ids.ShortID) error {
	return s.roleDB.Put(roleKey(role, account), nil)
}

func (s *roleState) RemoveRole(role Role, account ids.ShortID) error {
	return s.roleDB.Delete(roleKey(role, account))
}
