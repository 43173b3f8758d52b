// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

// MaxPayloadSize bounds every canonically encoded transition and request.
const MaxPayloadSize = 4 * units.MiB

// The canonical encoding is big-endian and length prefixed:
//
//	pair       := bytes(key) bool(some) [bytes(value)]
//	action     := u8(tag) (bytes | u32 | account[20])
//	transition := u32(n) pair*n  u32(n) pair*n  u32(n) action*n
//	request    := account[20](from) account[20](to) u64(nonce) bytes(data)

// MarshalTransition returns the canonical encoding of [t]. It is the format
// expected in ForwardRequest.Data.
func MarshalTransition(t *Transition) ([]byte, error) {
	p := wrappers.Packer{MaxSize: MaxPayloadSize}
	packPairs(&p, t.Conditions)
	packPairs(&p, t.Updates)
	p.PackInt(uint32(len(t.Actions)))
	for _, action := range t.Actions {
		packAction(&p, action)
	}
	if p.Errored() {
		return nil, fmt.Errorf("couldn't marshal transition: %w", p.Err)
	}
	return p.Bytes, nil
}

// ParseTransition decodes a canonically encoded transition. Any malformed
// input, trailing bytes or unknown action tag yields ErrFailedToDecode.
func ParseTransition(b []byte) (*Transition, error) {
	p := wrappers.Packer{Bytes: b}
	t := &Transition{
		Conditions: unpackPairs(&p),
		Updates:    unpackPairs(&p),
	}
	numActions := p.UnpackInt()
	for i := uint32(0); i < numActions && !p.Errored(); i++ {
		action, err := unpackAction(&p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToDecode, err)
		}
		t.Actions = append(t.Actions, action)
	}
	if err := finishUnpack(&p); err != nil {
		return nil, err
	}
	return t, nil
}

// MarshalRequest returns the canonical encoding of [r]. The signed hash of a
// request is computed over these bytes.
func MarshalRequest(r *ForwardRequest) ([]byte, error) {
	p := wrappers.Packer{MaxSize: MaxPayloadSize + 2*ids.ShortIDLen + wrappers.LongLen + wrappers.IntLen}
	p.PackFixedBytes(r.From[:])
	p.PackFixedBytes(r.To[:])
	p.PackLong(r.Nonce)
	p.PackBytes(r.Data)
	if p.Errored() {
		return nil, fmt.Errorf("couldn't marshal request: %w", p.Err)
	}
	return p.Bytes, nil
}

// ParseRequest decodes a canonically encoded forward request.
func ParseRequest(b []byte) (*ForwardRequest, error) {
	p := wrappers.Packer{Bytes: b}
	r := &ForwardRequest{}
	copy(r.From[:], p.UnpackFixedBytes(ids.ShortIDLen))
	copy(r.To[:], p.UnpackFixedBytes(ids.ShortIDLen))
	r.Nonce = p.UnpackLong()
	r.Data = p.UnpackBytes()
	if err := finishUnpack(&p); err != nil {
		return nil, err
	}
	return r, nil
}

func packPairs(p *wrappers.Packer, pairs []Pair) {
	p.PackInt(uint32(len(pairs)))
	for _, pair := range pairs {
		p.PackBytes(pair.Key)
		p.PackBool(pair.Value.HasValue())
		if pair.Value.HasValue() {
			p.PackBytes(pair.Value.Value())
		}
	}
}

func unpackPairs(p *wrappers.Packer) []Pair {
	numPairs := p.UnpackInt()
	var pairs []Pair
	for i := uint32(0); i < numPairs && !p.Errored(); i++ {
		pair := Pair{Key: p.UnpackBytes()}
		if p.UnpackBool() {
			pair.Value = maybe.Some(p.UnpackBytes())
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

func packAction(p *wrappers.Packer, action Action) {
	p.PackByte(byte(action.Type))
	switch action.Type {
	case ReplyAction:
		p.PackBytes(action.Payload)
	case SetQueueHeadAction:
		p.PackInt(action.Index)
	case GrantAttestorAction, RevokeAttestorAction:
		p.PackFixedBytes(action.Account[:])
	default:
		p.Add(fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type))
	}
}

func unpackAction(p *wrappers.Packer) (Action, error) {
	action := Action{Type: ActionType(p.UnpackByte())}
	if p.Errored() {
		return action, nil
	}
	switch action.Type {
	case ReplyAction:
		action.Payload = p.UnpackBytes()
	case SetQueueHeadAction:
		action.Index = p.UnpackInt()
	case GrantAttestorAction, RevokeAttestorAction:
		copy(action.Account[:], p.UnpackFixedBytes(ids.ShortIDLen))
	default:
		return action, fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type)
	}
	return action, nil
}

func finishUnpack(p *wrappers.Packer) error {
	if p.Errored() {
		return fmt.Errorf("%w: %w", ErrFailedToDecode, p.Err)
	}
	if p.Offset != len(p.Bytes) {
		return fmt.Errorf("%w: %d trailing bytes", ErrFailedToDecode, len(p.Bytes)-p.Offset)
	}
	return nil
}
