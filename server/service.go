// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/oklog/ulid/v2"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/anchor"
)

// Service is the API service of the anchor. Mutating methods, except
// MetaTxRollupCondEq, act as the caller authenticated by the bearer token.
type Service struct {
	anchor *anchor.Anchor
	log    log.Logger
}

func NewService(a *anchor.Anchor, logger log.Logger) *Service {
	return &Service{anchor: a, log: logger}
}

// EmptyArgs is used by methods that take no arguments.
type EmptyArgs struct{}

type RoleArgs struct {
	Role    string      `json:"role"`
	Account ids.ShortID `json:"account"`
}

type HasRoleReply struct {
	HasRole bool `json:"hasRole"`
}

// HasRole returns whether [args.Account] holds [args.Role].
func (s *Service) HasRole(_ *http.Request, args *RoleArgs, reply *HasRoleReply) error {
	role, err := anchor.ParseRole(args.Role)
	if err != nil {
		return err
	}
	reply.HasRole, err = s.anchor.HasRole(role, args.Account)
	return err
}

// EventsReply holds the events committed by a mutating call.
type EventsReply struct {
	Events []Event `json:"events"`
}

func (s *Service) GrantRole(r *http.Request, args *RoleArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	role, err := anchor.ParseRole(args.Role)
	if err != nil {
		return err
	}
	events, err := s.anchor.GrantRole(r.Context(), caller, role, args.Account)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

func (s *Service) RevokeRole(r *http.Request, args *RoleArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	role, err := anchor.ParseRole(args.Role)
	if err != nil {
		return err
	}
	events, err := s.anchor.RevokeRole(r.Context(), caller, role, args.Account)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type RenounceRoleArgs struct {
	Role string `json:"role"`
}

func (s *Service) RenounceRole(r *http.Request, args *RenounceRoleArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	role, err := anchor.ParseRole(args.Role)
	if err != nil {
		return err
	}
	events, err := s.anchor.RenounceRole(r.Context(), caller, role)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type GetValueArgs struct {
	Key string `json:"key"`
}

// ValueReply holds an optional hex encoded value. A null value is absent.
type ValueReply struct {
	Value *string `json:"value"`
}

func (s *Service) GetValue(_ *http.Request, args *GetValueArgs, reply *ValueReply) error {
	key, err := DecodeBytes(args.Key)
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	value, err := s.anchor.GetValue(key)
	if err != nil {
		return err
	}
	reply.Value = newMaybeBytes(value)
	return nil
}

type HasMessageReply struct {
	HasMessage bool `json:"hasMessage"`
}

func (s *Service) HasMessage(_ *http.Request, _ *EmptyArgs, reply *HasMessageReply) error {
	var err error
	reply.HasMessage, err = s.anchor.HasMessage()
	return err
}

type PushMessageArgs struct {
	Payload string `json:"payload"`
}

type PushMessageReply struct {
	Index  json.Uint32 `json:"index"`
	Events []Event     `json:"events"`
}

func (s *Service) PushMessage(r *http.Request, args *PushMessageArgs, reply *PushMessageReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	payload, err := DecodeBytes(args.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	index, events, err := s.anchor.PushMessage(r.Context(), caller, payload)
	if err != nil {
		return err
	}
	reply.Index = json.Uint32(index)
	reply.Events = NewEvents(events)
	return nil
}

type IndexArgs struct {
	Index json.Uint32 `json:"index"`
}

func (s *Service) GetMessage(_ *http.Request, args *IndexArgs, reply *ValueReply) error {
	message, err := s.anchor.GetMessage(uint32(args.Index))
	if err != nil {
		return err
	}
	reply.Value = newMaybeBytes(message)
	return nil
}

type IndexReply struct {
	Index json.Uint32 `json:"index"`
}

func (s *Service) QueueHead(_ *http.Request, _ *EmptyArgs, reply *IndexReply) error {
	head, err := s.anchor.QueueHead()
	reply.Index = json.Uint32(head)
	return err
}

func (s *Service) QueueTail(_ *http.Request, _ *EmptyArgs, reply *IndexReply) error {
	tail, err := s.anchor.QueueTail()
	reply.Index = json.Uint32(tail)
	return err
}

type RollupCondEqArgs struct {
	Transition Transition `json:"transition"`
}

// RollupCondEq applies a transition as the authenticated caller.
func (s *Service) RollupCondEq(r *http.Request, args *RollupCondEqArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	transition, err := args.Transition.Parse()
	if err != nil {
		return err
	}
	events, err := s.anchor.RollupCondEq(r.Context(), caller, transition)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type PrepareArgs struct {
	From ids.ShortID `json:"from"`
	Data string      `json:"data"`
}

type PrepareReply struct {
	Request ForwardRequest `json:"request"`
	Hash    ids.ID         `json:"hash"`
}

func (s *Service) Prepare(r *http.Request, args *PrepareArgs, reply *PrepareReply) error {
	data, err := DecodeBytes(args.Data)
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	request, hash, err := s.anchor.Prepare(r.Context(), args.From, data)
	if err != nil {
		return err
	}
	reply.Request = NewForwardRequest(request)
	reply.Hash = hash
	return nil
}

type MetaTxRollupCondEqArgs struct {
	Request   ForwardRequest `json:"request"`
	Signature string         `json:"signature"`
}

// MetaTxRollupCondEq relays a signed request. The signature authorizes the
// call, so no token is needed. An authenticated caller is recorded as the
// relayer.
func (s *Service) MetaTxRollupCondEq(r *http.Request, args *MetaTxRollupCondEqArgs, reply *EventsReply) error {
	relayer, _ := CallerFromContext(r.Context())
	request, err := args.Request.Parse()
	if err != nil {
		return err
	}
	signature, err := DecodeBytes(args.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	events, err := s.anchor.MetaTxRollupCondEq(r.Context(), relayer, request, signature)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type AccountArgs struct {
	Account ids.ShortID `json:"account"`
}

type NonceReply struct {
	Nonce json.Uint64 `json:"nonce"`
}

func (s *Service) GetNonce(_ *http.Request, args *AccountArgs, reply *NonceReply) error {
	nonce, err := s.anchor.Nonce(args.Account)
	reply.Nonce = json.Uint64(nonce)
	return err
}

type OwnerReply struct {
	Owner *ids.ShortID `json:"owner"`
}

func (s *Service) Owner(_ *http.Request, _ *EmptyArgs, reply *OwnerReply) error {
	owner, err := s.anchor.Owner()
	if err != nil {
		return err
	}
	if owner.HasValue() {
		ownerID := owner.Value()
		reply.Owner = &ownerID
	}
	return nil
}

type TransferOwnershipArgs struct {
	// NewOwner is null to leave the anchor without an owner.
	NewOwner *ids.ShortID `json:"newOwner"`
}

func (s *Service) TransferOwnership(r *http.Request, args *TransferOwnershipArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	newOwner := maybe.Nothing[ids.ShortID]()
	if args.NewOwner != nil {
		newOwner = maybe.Some(*args.NewOwner)
	}
	events, err := s.anchor.TransferOwnership(r.Context(), caller, newOwner)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

func (s *Service) RenounceOwnership(r *http.Request, _ *EmptyArgs, reply *EventsReply) error {
	caller, err := requireCaller(r)
	if err != nil {
		return err
	}
	events, err := s.anchor.RenounceOwnership(r.Context(), caller)
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type GetEventsArgs struct {
	// After is the ID of the last event already seen. Empty starts from the
	// beginning of the journal.
	After string      `json:"after"`
	Limit json.Uint32 `json:"limit"`
}

func (s *Service) GetEvents(_ *http.Request, args *GetEventsArgs, reply *EventsReply) error {
	var after ulid.ULID
	if args.After != "" {
		var err error
		after, err = ulid.ParseStrict(args.After)
		if err != nil {
			return fmt.Errorf("invalid event id: %w", err)
		}
	}
	events, err := s.anchor.Events(after, int(args.Limit))
	if err != nil {
		return err
	}
	reply.Events = NewEvents(events)
	return nil
}

type VersionReply struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	ID      ids.ShortID `json:"id"`
}

func (s *Service) Version(_ *http.Request, _ *EmptyArgs, reply *VersionReply) error {
	reply.Name = anchor.Name
	reply.Version = anchor.Version.String()
	reply.ID = s.anchor.ID()
	return nil
}
