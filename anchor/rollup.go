// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/ids"
)

// RollupCondEq applies [transition] as [caller], who must be an attestor.
//
// Every condition is checked against the current store before anything is
// written. If they all hold, the updates are applied and the actions are run
// in order. Any failure drops the whole call, including updates already
// applied and events already emitted. GrantAttestor and RevokeAttestor
// actions require [caller] to be an admin.
func (a *Anchor) RollupCondEq(ctx context.Context, caller ids.ShortID, transition *Transition) ([]Event, error) {
	return a.execute(ctx, "rollupCondEq", func(now time.Time, sink EventSink) error {
		return a.rollupCondEq(ctx, now, sink, caller, transition)
	})
}

func (a *Anchor) rollupCondEq(
	ctx context.Context,
	now time.Time,
	sink EventSink,
	caller ids.ShortID,
	transition *Transition,
) error {
	if err := a.access.CheckRole(AttestorRole, caller); err != nil {
		return fmt.Errorf("%w: %w", ErrAccessControl, err)
	}

	kv := a.state.KV()
	for i, condition := range transition.Conditions {
		current, err := kv.Get(condition.Key)
		if err != nil {
			return fmt.Errorf("failed to read condition key 0x%x: %w", condition.Key, err)
		}
		if !valueEquals(current, condition.Value) {
			return fmt.Errorf("%w: condition %d on key 0x%x", ErrConditionNotMet, i, condition.Key)
		}
	}

	for _, update := range transition.Updates {
		if err := kv.Set(update.Key, update.Value); err != nil {
			return fmt.Errorf("failed to update key 0x%x: %w", update.Key, err)
		}
	}

	for i, action := range transition.Actions {
		if err := a.dispatch(ctx, now, sink, caller, action); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Type, err)
		}
	}
	return nil
}

func (a *Anchor) dispatch(
	ctx context.Context,
	now time.Time,
	sink EventSink,
	caller ids.ShortID,
	action Action,
) error {
	switch action.Type {
	case ReplyAction:
		env := &handlerEnv{
			ctx:    ctx,
			caller: caller,
			now:    now,
			store:  a.state.App(),
			sink:   sink,
		}
		if err := a.handler.OnMessageReceived(env, action.Payload); err != nil {
			return fmt.Errorf("%w: %w", ErrApplication, err)
		}
		return nil
	case SetQueueHeadAction:
		return a.queue.PopTo(sink, action.Index)
	case GrantAttestorAction:
		if err := a.access.GrantRole(sink, caller, AttestorRole, action.Account); err != nil {
			return fmt.Errorf("%w: %w", ErrAccessControl, err)
		}
		return nil
	case RevokeAttestorAction:
		if err := a.access.RevokeRole(sink, caller, AttestorRole, action.Account); err != nil {
			return fmt.Errorf("%w: %w", ErrAccessControl, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action.Type)
	}
}
