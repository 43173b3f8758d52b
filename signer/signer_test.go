// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The secp256k1 key with scalar 1.
const oneKey = "0x0000000000000000000000000000000000000000000000000000000000000001"

func TestSchemeByName(t *testing.T) {
	assert := assert.New(t)

	for _, name := range SchemeNames() {
		scheme, err := SchemeByName(name)
		assert.NoError(err)
		assert.Equal(name, scheme.Name())
	}

	_, err := SchemeByName("bitcoin")
	assert.ErrorIs(err, errUnknownScheme)
	assert.Equal([]string{AvalancheScheme, EthereumScheme, SubstrateScheme}, SchemeNames())
}

func TestKnownIdentities(t *testing.T) {
	require := require.New(t)

	key, err := ParsePrivateKey(oneKey)
	require.NoError(err)

	ethereum, err := SchemeByName(EthereumScheme)
	require.NoError(err)
	require.Equal(
		"7e5f4552091a69125d5dfcb7b8c2659029395bdf",
		hex.EncodeToString(Address(ethereum, key).Bytes()),
	)

	avalanche, err := SchemeByName(AvalancheScheme)
	require.NoError(err)
	require.Equal(
		"751e76e8199196d454941c45d1b3a323f1433bd6",
		hex.EncodeToString(Address(avalanche, key).Bytes()),
	)
}

func TestSignRecover(t *testing.T) {
	for _, name := range SchemeNames() {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			scheme, err := SchemeByName(name)
			require.NoError(err)
			key, err := GenerateKey()
			require.NoError(err)

			msg := []byte("rollup")
			hash, sig, err := Sign(scheme, key, msg)
			require.NoError(err)
			require.Len(sig, SignatureLen)
			require.Equal(scheme.Hash(msg), hash)

			pub, err := Recover(hash, sig)
			require.NoError(err)
			require.Equal(Address(scheme, key), scheme.Identity(pub))

			// A different message recovers a different key.
			other := scheme.Hash([]byte("rollup!"))
			pub, err = Recover(other, sig)
			if err == nil {
				require.NotEqual(Address(scheme, key), scheme.Identity(pub))
			}
		})
	}
}

func TestRecoverRejectsMalformedSignatures(t *testing.T) {
	assert := assert.New(t)

	scheme, err := SchemeByName(AvalancheScheme)
	assert.NoError(err)
	key, err := GenerateKey()
	assert.NoError(err)
	hash, sig, err := Sign(scheme, key, []byte("payload"))
	assert.NoError(err)

	_, err = Recover(hash, sig[:SignatureLen-1])
	assert.ErrorIs(err, ErrInvalidSignatureLen)

	badV := append([]byte{}, sig...)
	badV[SignatureLen-1] = 27
	_, err = Recover(hash, badV)
	assert.ErrorIs(err, ErrInvalidRecoveryID)
}

func TestPrivateKeyEncoding(t *testing.T) {
	require := require.New(t)

	key, err := GenerateKey()
	require.NoError(err)
	encoded, err := EncodePrivateKey(key)
	require.NoError(err)

	parsed, err := ParsePrivateKey(encoded)
	require.NoError(err)
	require.Zero(key.D.Cmp(parsed.D))

	_, err = ParsePrivateKey("not hex")
	require.Error(err)
}
