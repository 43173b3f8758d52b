// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Role is an opaque 32-bit role identifier.
type Role uint32

var (
	errEmptyRole = errors.New("empty role")

	AdminRole    = RoleFromName("ADMIN_ROLE")
	AttestorRole = RoleFromName("ATTESTOR_ROLE")
)

// RoleFromName derives a role identifier from a human readable name: the
// first four bytes of the BLAKE2b-256 digest of [name].
func RoleFromName(name string) Role {
	digest := blake2b.Sum256([]byte(name))
	return Role(binary.BigEndian.Uint32(digest[:4]))
}

func (r Role) String() string {
	switch r {
	case AdminRole:
		return "ADMIN"
	case AttestorRole:
		return "ATTESTOR"
	default:
		return fmt.Sprintf("0x%08x", uint32(r))
	}
}

// ParseRole is the inverse of Role.String. Any other string is treated as a
// role name and passed to RoleFromName.
func ParseRole(s string) (Role, error) {
	switch {
	case s == "ADMIN":
		return AdminRole, nil
	case s == "ATTESTOR":
		return AttestorRole, nil
	case strings.HasPrefix(s, "0x"):
		role, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid role %q: %w", s, err)
		}
		return Role(role), nil
	case s == "":
		return 0, errEmptyRole
	default:
		return RoleFromName(s), nil
	}
}
