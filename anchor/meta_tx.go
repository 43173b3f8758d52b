// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/rollupanchor/signer"
)

// ForwardRequest is a signed intent to call RollupCondEq as [From].
type ForwardRequest struct {
	From  ids.ShortID `json:"from"`
	To    ids.ShortID `json:"to"`
	Nonce uint64      `json:"nonce"`
	// Data is a transition encoded with MarshalTransition.
	Data []byte `json:"data"`
}

// Prepare returns the request [from] must sign to submit [data], along with
// the hash to sign. It does not modify any state.
func (a *Anchor) Prepare(ctx context.Context, from ids.ShortID, data []byte) (*ForwardRequest, ids.ID, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.checkOpen(ctx); err != nil {
		return nil, ids.Empty, err
	}
	nonce, err := a.state.Nonce(from)
	if err != nil {
		return nil, ids.Empty, err
	}
	request := &ForwardRequest{
		From:  from,
		To:    a.config.ID,
		Nonce: nonce,
		Data:  data,
	}
	hash, err := a.hashRequest(request)
	if err != nil {
		return nil, ids.Empty, err
	}
	return request, hash, nil
}

// MetaTxRollupCondEq runs the transition carried by [request] as
// [request.From], authorized by [signature] rather than by [relayer].
//
// The request is verified and its nonce consumed in a first commit. The
// transition is then applied in a second one. Once the first commit
// succeeds the request can never be replayed, even if its data does not
// decode or its transition fails.
//
// Every check of the transition runs against [request.From], never the
// relayer. This includes the admin check of GrantAttestor and RevokeAttestor.
func (a *Anchor) MetaTxRollupCondEq(
	ctx context.Context,
	relayer ids.ShortID,
	request *ForwardRequest,
	signature []byte,
) ([]Event, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.checkOpen(ctx); err != nil {
		return nil, err
	}
	initialized, err := a.state.IsInitialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, errNotInitialized
	}

	verifyEvents, err := a.commit("metaTxVerify", func(time.Time, EventSink) error {
		return a.useRequest(request, signature)
	})
	if err != nil {
		return nil, err
	}

	events, err := a.commit("metaTxRollupCondEq", func(now time.Time, sink EventSink) error {
		transition, err := ParseTransition(request.Data)
		if err != nil {
			return err
		}
		sink.Emit(Event{
			Kind:    MetaTransactionDecodedEvent,
			Account: request.From,
			Sender:  relayer,
		})
		return a.rollupCondEq(ctx, now, sink, request.From, transition)
	})
	if err != nil {
		a.metrics.burnedNonce.Inc()
		a.log.Debug("burned meta transaction nonce",
			"from", request.From,
			"nonce", request.Nonce,
			"relayer", relayer,
			"err", err,
		)
		return nil, err
	}
	return append(verifyEvents, events...), nil
}

// useRequest verifies [request] and increments the nonce of its signer.
func (a *Anchor) useRequest(request *ForwardRequest, signature []byte) error {
	if request.To != a.config.ID {
		return fmt.Errorf("%w: expected %s got %s", ErrInvalidDestination, a.config.ID, request.To)
	}

	nonce, err := a.state.Nonce(request.From)
	if err != nil {
		return err
	}
	if request.Nonce != nonce {
		return fmt.Errorf("%w: expected %d got %d", ErrNonceTooLow, nonce, request.Nonce)
	}

	hash, err := a.hashRequest(request)
	if err != nil {
		return err
	}
	pub, err := signer.Recover(hash, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncorrectSignature, err)
	}
	if signerID := a.config.Scheme.Identity(pub); signerID != request.From {
		return fmt.Errorf("%w: signed by %s", ErrPublicKeyNotMatch, signerID)
	}

	if nonce == math.MaxUint64 {
		return ErrNonceOverflow
	}
	return a.state.SetNonce(request.From, nonce+1)
}

func (a *Anchor) hashRequest(request *ForwardRequest) (ids.ID, error) {
	requestBytes, err := MarshalRequest(request)
	if err != nil {
		return ids.Empty, err
	}
	return a.config.Scheme.Hash(requestBytes), nil
}
