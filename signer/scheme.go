// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer hashes forward requests and maps recovered secp256k1 public
// keys to account identities. Each Scheme fixes both choices so that a signer
// and the anchor agree on them.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sort"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

const (
	AvalancheScheme = "avalanche"
	EthereumScheme  = "ethereum"
	SubstrateScheme = "substrate"
)

var (
	errUnknownScheme = errors.New("unknown signature scheme")

	schemes = map[string]Scheme{
		AvalancheScheme: avalancheScheme{},
		EthereumScheme:  ethereumScheme{},
		SubstrateScheme: substrateScheme{},
	}
)

// Scheme is a message hash paired with a public key to identity derivation.
type Scheme interface {
	Name() string
	// Hash returns the 32 byte digest that is signed.
	Hash(msg []byte) ids.ID
	// Identity derives the account controlled by [pub].
	Identity(pub *ecdsa.PublicKey) ids.ShortID
}

// SchemeByName returns the registered scheme called [name].
func SchemeByName(name string) (Scheme, error) {
	scheme, ok := schemes[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, expected one of %v", errUnknownScheme, name, SchemeNames())
	}
	return scheme, nil
}

// SchemeNames returns the registered scheme names in sorted order.
func SchemeNames() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// avalancheScheme signs SHA-256 digests and uses X-chain style short
// addresses: RIPEMD-160(SHA-256(compressed key)).
type avalancheScheme struct{}

func (avalancheScheme) Name() string { return AvalancheScheme }

func (avalancheScheme) Hash(msg []byte) ids.ID {
	return hashing.ComputeHash256Array(msg)
}

func (avalancheScheme) Identity(pub *ecdsa.PublicKey) ids.ShortID {
	return toShortID(hashing.PubkeyBytesToAddress(crypto.CompressPubkey(pub)))
}

// ethereumScheme signs Keccak-256 digests and uses Ethereum addresses.
type ethereumScheme struct{}

func (ethereumScheme) Name() string { return EthereumScheme }

func (ethereumScheme) Hash(msg []byte) ids.ID {
	return ids.ID(crypto.Keccak256Hash(msg))
}

func (ethereumScheme) Identity(pub *ecdsa.PublicKey) ids.ShortID {
	return ids.ShortID(crypto.PubkeyToAddress(*pub))
}

// substrateScheme signs BLAKE2b-256 digests. The identity is the first 20
// bytes of the BLAKE2b-256 digest of the compressed key.
type substrateScheme struct{}

func (substrateScheme) Name() string { return SubstrateScheme }

func (substrateScheme) Hash(msg []byte) ids.ID {
	return blake2b.Sum256(msg)
}

func (substrateScheme) Identity(pub *ecdsa.PublicKey) ids.ShortID {
	digest := blake2b.Sum256(crypto.CompressPubkey(pub))
	return toShortID(digest[:ids.ShortIDLen])
}

func toShortID(b []byte) ids.ShortID {
	var id ids.ShortID
	copy(id[:], b)
	return id
}
