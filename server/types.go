// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/oklog/ulid/v2"

	"github.com/ava-labs/rollupanchor/anchor"
)

var (
	errUnknownActionType = errors.New("unknown action type")
	errMissingAccount    = errors.New("action is missing an account")
)

// Pair is the JSON form of anchor.Pair. A null value means absent.
type Pair struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// Action is the JSON form of anchor.Action. Type is one of Reply,
// SetQueueHead, GrantAttestor or RevokeAttestor.
type Action struct {
	Type    string       `json:"type"`
	Payload string       `json:"payload,omitempty"`
	Index   json.Uint32  `json:"index,omitempty"`
	Account *ids.ShortID `json:"account,omitempty"`
}

// Transition is the JSON form of anchor.Transition.
type Transition struct {
	Conditions []Pair   `json:"conditions"`
	Updates    []Pair   `json:"updates"`
	Actions    []Action `json:"actions"`
}

// ForwardRequest is the JSON form of anchor.ForwardRequest.
type ForwardRequest struct {
	From  ids.ShortID `json:"from"`
	To    ids.ShortID `json:"to"`
	Nonce json.Uint64 `json:"nonce"`
	Data  string      `json:"data"`
}

// Event is the JSON form of anchor.Event.
type Event struct {
	ID        ulid.ULID        `json:"id"`
	Kind      anchor.EventKind `json:"kind"`
	Role      string           `json:"role"`
	Account   ids.ShortID      `json:"account"`
	Sender    ids.ShortID      `json:"sender"`
	Index     json.Uint32      `json:"index"`
	Data      string           `json:"data"`
	Timestamp json.Uint64      `json:"timestamp"`
}

func EncodeBytes(b []byte) string {
	// Encoding to hex never fails.
	s, _ := formatting.Encode(formatting.HexNC, b)
	return s
}

func DecodeBytes(s string) ([]byte, error) {
	return formatting.Decode(formatting.HexNC, s)
}

func NewPair(pair anchor.Pair) Pair {
	p := Pair{Key: EncodeBytes(pair.Key)}
	if pair.Value.HasValue() {
		value := EncodeBytes(pair.Value.Value())
		p.Value = &value
	}
	return p
}

func (p Pair) Parse() (anchor.Pair, error) {
	key, err := DecodeBytes(p.Key)
	if err != nil {
		return anchor.Pair{}, fmt.Errorf("invalid key %q: %w", p.Key, err)
	}
	if p.Value == nil {
		return anchor.AbsentPair(key), nil
	}
	value, err := DecodeBytes(*p.Value)
	if err != nil {
		return anchor.Pair{}, fmt.Errorf("invalid value for key %q: %w", p.Key, err)
	}
	return anchor.NewPair(key, value), nil
}

func NewAction(action anchor.Action) Action {
	a := Action{Type: action.Type.String()}
	switch action.Type {
	case anchor.ReplyAction:
		a.Payload = EncodeBytes(action.Payload)
	case anchor.SetQueueHeadAction:
		a.Index = json.Uint32(action.Index)
	case anchor.GrantAttestorAction, anchor.RevokeAttestorAction:
		account := action.Account
		a.Account = &account
	}
	return a
}

func (a Action) Parse() (anchor.Action, error) {
	switch a.Type {
	case anchor.ReplyAction.String():
		payload, err := DecodeBytes(a.Payload)
		if err != nil {
			return anchor.Action{}, fmt.Errorf("invalid reply payload: %w", err)
		}
		return anchor.Reply(payload), nil
	case anchor.SetQueueHeadAction.String():
		return anchor.SetQueueHead(uint32(a.Index)), nil
	case anchor.GrantAttestorAction.String():
		if a.Account == nil {
			return anchor.Action{}, errMissingAccount
		}
		return anchor.GrantAttestor(*a.Account), nil
	case anchor.RevokeAttestorAction.String():
		if a.Account == nil {
			return anchor.Action{}, errMissingAccount
		}
		return anchor.RevokeAttestor(*a.Account), nil
	default:
		return anchor.Action{}, fmt.Errorf("%w %q", errUnknownActionType, a.Type)
	}
}

func NewTransition(t *anchor.Transition) Transition {
	transition := Transition{
		Conditions: make([]Pair, len(t.Conditions)),
		Updates:    make([]Pair, len(t.Updates)),
		Actions:    make([]Action, len(t.Actions)),
	}
	for i, condition := range t.Conditions {
		transition.Conditions[i] = NewPair(condition)
	}
	for i, update := range t.Updates {
		transition.Updates[i] = NewPair(update)
	}
	for i, action := range t.Actions {
		transition.Actions[i] = NewAction(action)
	}
	return transition
}

func (t Transition) Parse() (*anchor.Transition, error) {
	transition := &anchor.Transition{}
	for i, condition := range t.Conditions {
		pair, err := condition.Parse()
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		transition.Conditions = append(transition.Conditions, pair)
	}
	for i, update := range t.Updates {
		pair, err := update.Parse()
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
		transition.Updates = append(transition.Updates, pair)
	}
	for i, a := range t.Actions {
		action, err := a.Parse()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		transition.Actions = append(transition.Actions, action)
	}
	return transition, nil
}

func NewForwardRequest(r *anchor.ForwardRequest) ForwardRequest {
	return ForwardRequest{
		From:  r.From,
		To:    r.To,
		Nonce: json.Uint64(r.Nonce),
		Data:  EncodeBytes(r.Data),
	}
}

func (r ForwardRequest) Parse() (*anchor.ForwardRequest, error) {
	data, err := DecodeBytes(r.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid request data: %w", err)
	}
	return &anchor.ForwardRequest{
		From:  r.From,
		To:    r.To,
		Nonce: uint64(r.Nonce),
		Data:  data,
	}, nil
}

func NewEvents(events []anchor.Event) []Event {
	jsonEvents := make([]Event, len(events))
	for i, event := range events {
		jsonEvents[i] = Event{
			ID:        event.ID,
			Kind:      event.Kind,
			Role:      event.Role.String(),
			Account:   event.Account,
			Sender:    event.Sender,
			Index:     json.Uint32(event.Index),
			Data:      EncodeBytes(event.Data),
			Timestamp: json.Uint64(event.Timestamp),
		}
	}
	return jsonEvents
}

func newMaybeBytes(value maybe.Maybe[[]byte]) *string {
	if value.IsNothing() {
		return nil
	}
	s := EncodeBytes(value.Value())
	return &s
}
