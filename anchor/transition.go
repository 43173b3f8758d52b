// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"bytes"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

// Pair is a key with an optional value.
// As a condition, [Value] is the value the key is expected to hold (Nothing
// means the key must be absent). As an update, [Value] is written to the key
// (Nothing deletes it).
type Pair struct {
	Key   []byte
	Value maybe.Maybe[[]byte]
}

// NewPair returns a pair holding [value] for [key].
func NewPair(key, value []byte) Pair {
	return Pair{Key: key, Value: maybe.Some(value)}
}

// AbsentPair returns a pair asserting or producing the absence of [key].
func AbsentPair(key []byte) Pair {
	return Pair{Key: key, Value: maybe.Nothing[[]byte]()}
}

// ActionType tags the variant held by an Action.
type ActionType byte

const (
	ReplyAction ActionType = iota
	SetQueueHeadAction
	GrantAttestorAction
	RevokeAttestorAction
)

func (t ActionType) String() string {
	switch t {
	case ReplyAction:
		return "Reply"
	case SetQueueHeadAction:
		return "SetQueueHead"
	case GrantAttestorAction:
		return "GrantAttestor"
	case RevokeAttestorAction:
		return "RevokeAttestor"
	default:
		return fmt.Sprintf("ActionType(%d)", byte(t))
	}
}

// Action is executed after the updates of a transition, in submitted order.
// Only the field matching [Type] is meaningful.
type Action struct {
	Type    ActionType
	Payload []byte
	Index   uint32
	Account ids.ShortID
}

// Reply forwards [payload] to the application's message handler.
func Reply(payload []byte) Action {
	return Action{Type: ReplyAction, Payload: payload}
}

// SetQueueHead consumes the queue up to, but not including, [index].
func SetQueueHead(index uint32) Action {
	return Action{Type: SetQueueHeadAction, Index: index}
}

func GrantAttestor(account ids.ShortID) Action {
	return Action{Type: GrantAttestorAction, Account: account}
}

func RevokeAttestor(account ids.ShortID) Action {
	return Action{Type: RevokeAttestorAction, Account: account}
}

// Transition is the (conditions, updates, actions) tuple applied atomically by
// RollupCondEq.
type Transition struct {
	Conditions []Pair
	Updates    []Pair
	Actions    []Action
}

// valueEquals reports whether the stored value [current] satisfies the
// expectation [expected]. Two absent values are equal.
func valueEquals(current, expected maybe.Maybe[[]byte]) bool {
	switch {
	case current.IsNothing() && expected.IsNothing():
		return true
	case current.HasValue() && expected.HasValue():
		return bytes.Equal(current.Value(), expected.Value())
	default:
		return false
	}
}
