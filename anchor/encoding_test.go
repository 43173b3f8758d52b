// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/stretchr/testify/require"
)

func TestTransitionEncoding(t *testing.T) {
	require := require.New(t)

	transition := &Transition{
		Conditions: []Pair{
			AbsentPair([]byte("version")),
			NewPair([]byte("price"), []byte{0x01}),
		},
		Updates: []Pair{
			NewPair([]byte("version"), []byte{0x00, 0x01}),
			AbsentPair([]byte("price")),
		},
		Actions: []Action{
			Reply([]byte("response")),
			SetQueueHead(7),
			GrantAttestor(ids.ShortID{4}),
			RevokeAttestor(ids.ShortID{5}),
		},
	}
	transitionBytes, err := MarshalTransition(transition)
	require.NoError(err)

	parsed, err := ParseTransition(transitionBytes)
	require.NoError(err)
	require.Equal(transition, parsed)

	_, err = ParseTransition(append(transitionBytes, 0x00))
	require.ErrorIs(err, ErrFailedToDecode)

	_, err = ParseTransition(transitionBytes[:len(transitionBytes)-1])
	require.ErrorIs(err, ErrFailedToDecode)
}

func TestTransitionEncodingUnknownAction(t *testing.T) {
	require := require.New(t)

	transitionBytes, err := MarshalTransition(&Transition{
		Actions: []Action{SetQueueHead(1)},
	})
	require.NoError(err)

	// The action tag follows the two empty pair lists and the action count.
	tagOffset := 3 * 4
	require.Equal(byte(SetQueueHeadAction), transitionBytes[tagOffset])
	transitionBytes[tagOffset] = 0x09

	_, err = ParseTransition(transitionBytes)
	require.ErrorIs(err, ErrFailedToDecode)
	require.ErrorIs(err, ErrUnsupportedAction)

	_, err = MarshalTransition(&Transition{
		Actions: []Action{{Type: 0x09}},
	})
	require.ErrorIs(err, ErrUnsupportedAction)
}

func TestRequestEncoding(t *testing.T) {
	require := require.New(t)

	request := &ForwardRequest{
		From:  ids.ShortID{1},
		To:    ids.ShortID{2},
		Nonce: 3,
		Data:  []byte("transition"),
	}
	requestBytes, err := MarshalRequest(request)
	require.NoError(err)
	require.Len(requestBytes, 2*ids.ShortIDLen+8+4+len(request.Data))

	parsed, err := ParseRequest(requestBytes)
	require.NoError(err)
	require.Equal(request, parsed)

	_, err = ParseRequest(requestBytes[:10])
	require.ErrorIs(err, ErrFailedToDecode)
}
