// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/rollupanchor/anchor"
)

// StaticService converts transitions and forward requests between their JSON
// form and the canonical encoding. It does not touch any anchor state.
type StaticService struct{}

// CreateStaticService ...
func CreateStaticService() *StaticService {
	return &StaticService{}
}

// EncodeTransitionArgs are arguments for EncodeTransition
type EncodeTransitionArgs struct {
	Transition Transition `json:"transition"`
}

// BytesReply holds hex encoded bytes
type BytesReply struct {
	Bytes string `json:"bytes"`
}

// EncodeTransition returns the canonical encoding of a transition, as expected
// in the data of a forward request
func (ss *StaticService) EncodeTransition(_ *http.Request, args *EncodeTransitionArgs, reply *BytesReply) error {
	transition, err := args.Transition.Parse()
	if err != nil {
		return err
	}
	transitionBytes, err := anchor.MarshalTransition(transition)
	if err != nil {
		return fmt.Errorf("couldn't encode transition: %w", err)
	}
	reply.Bytes = EncodeBytes(transitionBytes)
	return nil
}

// BytesArgs are hex encoded bytes
type BytesArgs struct {
	Bytes string `json:"bytes"`
}

// TransitionReply is the reply from DecodeTransition
type TransitionReply struct {
	Transition Transition `json:"transition"`
}

// DecodeTransition returns the JSON form of a canonically encoded transition
func (ss *StaticService) DecodeTransition(_ *http.Request, args *BytesArgs, reply *TransitionReply) error {
	transitionBytes, err := DecodeBytes(args.Bytes)
	if err != nil {
		return fmt.Errorf("couldn't decode bytes: %w", err)
	}
	transition, err := anchor.ParseTransition(transitionBytes)
	if err != nil {
		return err
	}
	reply.Transition = NewTransition(transition)
	return nil
}

// EncodeRequestArgs are arguments for EncodeRequest
type EncodeRequestArgs struct {
	Request ForwardRequest `json:"request"`
}

// EncodeRequest returns the canonical encoding of a forward request. Its hash
// under the anchor's signature scheme is what the signer signs.
func (ss *StaticService) EncodeRequest(_ *http.Request, args *EncodeRequestArgs, reply *BytesReply) error {
	request, err := args.Request.Parse()
	if err != nil {
		return err
	}
	requestBytes, err := anchor.MarshalRequest(request)
	if err != nil {
		return fmt.Errorf("couldn't encode request: %w", err)
	}
	reply.Bytes = EncodeBytes(requestBytes)
	return nil
}
