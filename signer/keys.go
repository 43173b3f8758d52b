// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLen is the length of an [R || S || V] signature.
const SignatureLen = crypto.SignatureLength

var (
	ErrInvalidSignatureLen = errors.New("invalid signature length")
	ErrInvalidRecoveryID   = errors.New("invalid recovery id")
)

// Sign signs the [scheme] digest of [msg] with [key].
func Sign(scheme Scheme, key *ecdsa.PrivateKey, msg []byte) (ids.ID, []byte, error) {
	hash := scheme.Hash(msg)
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return ids.Empty, nil, fmt.Errorf("failed to sign: %w", err)
	}
	return hash, sig, nil
}

// Recover returns the public key that produced [sig] over [hash].
func Recover(hash ids.ID, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLen {
		return nil, fmt.Errorf("%w: expected %d got %d", ErrInvalidSignatureLen, SignatureLen, len(sig))
	}
	if v := sig[SignatureLen-1]; v > 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecoveryID, v)
	}
	return crypto.SigToPub(hash[:], sig)
}

// Address returns the identity [scheme] assigns to [key].
func Address(scheme Scheme, key *ecdsa.PrivateKey) ids.ShortID {
	return scheme.Identity(&key.PublicKey)
}

func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// EncodePrivateKey returns [key] as 0x prefixed hex.
func EncodePrivateKey(key *ecdsa.PrivateKey) (string, error) {
	return formatting.Encode(formatting.HexNC, crypto.FromECDSA(key))
}

// ParsePrivateKey parses a 0x prefixed hex private key.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	keyBytes, err := formatting.Decode(formatting.HexNC, s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return crypto.ToECDSA(keyBytes)
}
