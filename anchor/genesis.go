// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import "github.com/ava-labs/avalanchego/ids"

// KeyValue is an initial entry of the application store.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Genesis describes the state written when an empty store is bootstrapped.
type Genesis struct {
	// Deployer becomes the owner and is granted both AdminRole and
	// AttestorRole.
	Deployer ids.ShortID
	// Admins and Attestors are granted their role by the deployer. Entries
	// equal to the deployer are skipped.
	Admins    []ids.ShortID
	Attestors []ids.ShortID
	Values    []KeyValue
}
