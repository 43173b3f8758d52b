// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client implements a typed client of the anchor API.
package client

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/rpc"
	"github.com/oklog/ulid/v2"

	"github.com/ava-labs/rollupanchor/anchor"
	"github.com/ava-labs/rollupanchor/server"
)

var _ Client = (*client)(nil)

// Client defines anchor client operations.
type Client interface {
	HasRole(ctx context.Context, role anchor.Role, account ids.ShortID) (bool, error)
	GrantRole(ctx context.Context, role anchor.Role, account ids.ShortID) ([]server.Event, error)
	RevokeRole(ctx context.Context, role anchor.Role, account ids.ShortID) ([]server.Event, error)
	RenounceRole(ctx context.Context, role anchor.Role) ([]server.Event, error)

	GetValue(ctx context.Context, key []byte) (maybe.Maybe[[]byte], error)

	HasMessage(ctx context.Context) (bool, error)
	PushMessage(ctx context.Context, payload []byte) (uint32, error)
	GetMessage(ctx context.Context, index uint32) (maybe.Maybe[[]byte], error)
	QueueHead(ctx context.Context) (uint32, error)
	QueueTail(ctx context.Context) (uint32, error)

	RollupCondEq(ctx context.Context, transition *anchor.Transition) ([]server.Event, error)
	Prepare(ctx context.Context, from ids.ShortID, data []byte) (*anchor.ForwardRequest, ids.ID, error)
	MetaTxRollupCondEq(ctx context.Context, request *anchor.ForwardRequest, signature []byte) ([]server.Event, error)
	GetNonce(ctx context.Context, account ids.ShortID) (uint64, error)

	Owner(ctx context.Context) (maybe.Maybe[ids.ShortID], error)
	TransferOwnership(ctx context.Context, newOwner maybe.Maybe[ids.ShortID]) ([]server.Event, error)
	RenounceOwnership(ctx context.Context) ([]server.Event, error)

	GetEvents(ctx context.Context, after ulid.ULID, limit uint32) ([]server.Event, error)
	Version(ctx context.Context) (*server.VersionReply, error)
}

// New creates a new client of the anchor served at [uri], e.g.
// http://127.0.0.1:9650. [token] authenticates mutating calls and may be
// empty for read-only use and meta transactions.
func New(uri string, token string) Client {
	var options []rpc.Option
	if token != "" {
		options = append(options, rpc.WithHeader("Authorization", "Bearer "+token))
	}
	return &client{
		req:     rpc.NewEndpointRequester(uri + server.Endpoint),
		options: options,
	}
}

type client struct {
	req     rpc.EndpointRequester
	options []rpc.Option
}

func (cli *client) send(ctx context.Context, method string, args interface{}, reply interface{}) error {
	return cli.req.SendRequest(ctx, server.ServiceName+"."+method, args, reply, cli.options...)
}

func (cli *client) HasRole(ctx context.Context, role anchor.Role, account ids.ShortID) (bool, error) {
	resp := new(server.HasRoleReply)
	err := cli.send(ctx, "hasRole", &server.RoleArgs{
		Role:    role.String(),
		Account: account,
	}, resp)
	return resp.HasRole, err
}

func (cli *client) GrantRole(ctx context.Context, role anchor.Role, account ids.ShortID) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "grantRole", &server.RoleArgs{
		Role:    role.String(),
		Account: account,
	}, resp)
	return resp.Events, err
}

func (cli *client) RevokeRole(ctx context.Context, role anchor.Role, account ids.ShortID) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "revokeRole", &server.RoleArgs{
		Role:    role.String(),
		Account: account,
	}, resp)
	return resp.Events, err
}

func (cli *client) RenounceRole(ctx context.Context, role anchor.Role) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "renounceRole", &server.RenounceRoleArgs{
		Role: role.String(),
	}, resp)
	return resp.Events, err
}

func (cli *client) GetValue(ctx context.Context, key []byte) (maybe.Maybe[[]byte], error) {
	resp := new(server.ValueReply)
	if err := cli.send(ctx, "getValue", &server.GetValueArgs{
		Key: server.EncodeBytes(key),
	}, resp); err != nil {
		return maybe.Nothing[[]byte](), err
	}
	return parseMaybeBytes(resp.Value)
}

func (cli *client) HasMessage(ctx context.Context) (bool, error) {
	resp := new(server.HasMessageReply)
	err := cli.send(ctx, "hasMessage", &server.EmptyArgs{}, resp)
	return resp.HasMessage, err
}

func (cli *client) PushMessage(ctx context.Context, payload []byte) (uint32, error) {
	resp := new(server.PushMessageReply)
	err := cli.send(ctx, "pushMessage", &server.PushMessageArgs{
		Payload: server.EncodeBytes(payload),
	}, resp)
	return uint32(resp.Index), err
}

func (cli *client) GetMessage(ctx context.Context, index uint32) (maybe.Maybe[[]byte], error) {
	resp := new(server.ValueReply)
	if err := cli.send(ctx, "getMessage", &server.IndexArgs{
		Index: json.Uint32(index),
	}, resp); err != nil {
		return maybe.Nothing[[]byte](), err
	}
	return parseMaybeBytes(resp.Value)
}

func (cli *client) QueueHead(ctx context.Context) (uint32, error) {
	resp := new(server.IndexReply)
	err := cli.send(ctx, "queueHead", &server.EmptyArgs{}, resp)
	return uint32(resp.Index), err
}

func (cli *client) QueueTail(ctx context.Context) (uint32, error) {
	resp := new(server.IndexReply)
	err := cli.send(ctx, "queueTail", &server.EmptyArgs{}, resp)
	return uint32(resp.Index), err
}

func (cli *client) RollupCondEq(ctx context.Context, transition *anchor.Transition) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "rollupCondEq", &server.RollupCondEqArgs{
		Transition: server.NewTransition(transition),
	}, resp)
	return resp.Events, err
}

func (cli *client) Prepare(ctx context.Context, from ids.ShortID, data []byte) (*anchor.ForwardRequest, ids.ID, error) {
	resp := new(server.PrepareReply)
	if err := cli.send(ctx, "prepare", &server.PrepareArgs{
		From: from,
		Data: server.EncodeBytes(data),
	}, resp); err != nil {
		return nil, ids.Empty, err
	}
	request, err := resp.Request.Parse()
	if err != nil {
		return nil, ids.Empty, err
	}
	return request, resp.Hash, nil
}

func (cli *client) MetaTxRollupCondEq(ctx context.Context, request *anchor.ForwardRequest, signature []byte) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "metaTxRollupCondEq", &server.MetaTxRollupCondEqArgs{
		Request:   server.NewForwardRequest(request),
		Signature: server.EncodeBytes(signature),
	}, resp)
	return resp.Events, err
}

func (cli *client) GetNonce(ctx context.Context, account ids.ShortID) (uint64, error) {
	resp := new(server.NonceReply)
	err := cli.send(ctx, "getNonce", &server.AccountArgs{Account: account}, resp)
	return uint64(resp.Nonce), err
}

func (cli *client) Owner(ctx context.Context) (maybe.Maybe[ids.ShortID], error) {
	resp := new(server.OwnerReply)
	if err := cli.send(ctx, "owner", &server.EmptyArgs{}, resp); err != nil {
		return maybe.Nothing[ids.ShortID](), err
	}
	if resp.Owner == nil {
		return maybe.Nothing[ids.ShortID](), nil
	}
	return maybe.Some(*resp.Owner), nil
}

func (cli *client) TransferOwnership(ctx context.Context, newOwner maybe.Maybe[ids.ShortID]) ([]server.Event, error) {
	args := &server.TransferOwnershipArgs{}
	if newOwner.HasValue() {
		owner := newOwner.Value()
		args.NewOwner = &owner
	}
	resp := new(server.EventsReply)
	err := cli.send(ctx, "transferOwnership", args, resp)
	return resp.Events, err
}

func (cli *client) RenounceOwnership(ctx context.Context) ([]server.Event, error) {
	resp := new(server.EventsReply)
	err := cli.send(ctx, "renounceOwnership", &server.EmptyArgs{}, resp)
	return resp.Events, err
}

func (cli *client) GetEvents(ctx context.Context, after ulid.ULID, limit uint32) ([]server.Event, error) {
	args := &server.GetEventsArgs{Limit: json.Uint32(limit)}
	if after != (ulid.ULID{}) {
		args.After = after.String()
	}
	resp := new(server.EventsReply)
	err := cli.send(ctx, "getEvents", args, resp)
	return resp.Events, err
}

func (cli *client) Version(ctx context.Context) (*server.VersionReply, error) {
	resp := new(server.VersionReply)
	err := cli.send(ctx, "version", &server.EmptyArgs{}, resp)
	return resp, err
}

func parseMaybeBytes(value *string) (maybe.Maybe[[]byte], error) {
	if value == nil {
		return maybe.Nothing[[]byte](), nil
	}
	b, err := server.DecodeBytes(*value)
	if err != nil {
		return maybe.Nothing[[]byte](), fmt.Errorf("invalid value: %w", err)
	}
	return maybe.Some(b), nil
}
