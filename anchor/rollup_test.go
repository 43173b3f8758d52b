// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"context"
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("rejected")

// guessHandler stores the last reply and refuses the payload "bad".
type guessHandler struct{}

func (guessHandler) OnMessageReceived(env HandlerEnv, payload []byte) error {
	if string(payload) == "bad" {
		return errRejected
	}
	if err := env.Storage().Set([]byte("last"), maybe.Some(payload)); err != nil {
		return err
	}
	env.Emit(append([]byte("from "), env.Caller().Bytes()...))
	return nil
}

func requireValue(t *testing.T, a *Anchor, key string, expected maybe.Maybe[[]byte]) {
	t.Helper()
	value, err := a.GetValue([]byte(key))
	require.NoError(t, err)
	require.True(t, valueEquals(value, expected), "unexpected value %v for %q", value, key)
}

func journalLen(t *testing.T, a *Anchor) int {
	t.Helper()
	events, err := a.Events(ulid.ULID{}, 0)
	require.NoError(t, err)
	return len(events)
}

func TestRollupCondEqRequiresAttestor(t *testing.T) {
	require := require.New(t)
	a := newTestAnchor(t, newTestConfig(t))

	_, err := a.RollupCondEq(context.Background(), bob, &Transition{
		Conditions: []Pair{NewPair([]byte("missing"), []byte{1})},
		Updates:    []Pair{NewPair([]byte("k"), []byte{1})},
	})
	require.ErrorIs(err, ErrAccessControl)
	require.ErrorIs(err, ErrMissingRole)
	require.NotErrorIs(err, ErrConditionNotMet)
	requireValue(t, a, "k", maybe.Nothing[[]byte]())
}

func TestRollupCondEqConditionNotMet(t *testing.T) {
	require := require.New(t)
	a := newTestAnchor(t, newTestConfig(t))
	before := journalLen(t, a)

	_, err := a.RollupCondEq(context.Background(), alice, &Transition{
		Conditions: []Pair{
			NewPair([]byte("greeting"), []byte("hello")),
			NewPair([]byte("k"), []byte{1}),
			AbsentPair([]byte("other")),
		},
		Updates: []Pair{
			NewPair([]byte("other"), []byte{2}),
			AbsentPair([]byte("greeting")),
		},
		Actions: []Action{Reply([]byte("never"))},
	})
	require.ErrorIs(err, ErrConditionNotMet)
	requireValue(t, a, "greeting", maybe.Some([]byte("hello")))
	requireValue(t, a, "other", maybe.Nothing[[]byte]())
	require.Equal(before, journalLen(t, a))
}

func TestRollupCondEqOptimisticLock(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestAnchor(t, newTestConfig(t))

	first := &Transition{
		Conditions: []Pair{AbsentPair([]byte("k"))},
		Updates:    []Pair{NewPair([]byte("k"), []byte{1})},
	}
	events, err := a.RollupCondEq(ctx, alice, first)
	require.NoError(err)
	require.Empty(events)
	requireValue(t, a, "k", maybe.Some([]byte{1}))

	_, err = a.RollupCondEq(ctx, alice, first)
	require.ErrorIs(err, ErrConditionNotMet)

	_, err = a.RollupCondEq(ctx, alice, &Transition{
		Conditions: []Pair{NewPair([]byte("k"), []byte{1})},
		Updates:    []Pair{NewPair([]byte("k"), []byte{2})},
	})
	require.NoError(err)
	requireValue(t, a, "k", maybe.Some([]byte{2}))

	// An empty value is present, so it does not satisfy an absence condition.
	_, err = a.RollupCondEq(ctx, alice, &Transition{
		Updates: []Pair{NewPair([]byte("empty"), []byte{})},
	})
	require.NoError(err)
	_, err = a.RollupCondEq(ctx, alice, &Transition{
		Conditions: []Pair{AbsentPair([]byte("empty"))},
	})
	require.ErrorIs(err, ErrConditionNotMet)
}

func TestRollupCondEqConsumesQueue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	config := newTestConfig(t)
	config.Handler = guessHandler{}
	a := newTestAnchor(t, config)

	for _, payload := range []string{"a", "b", "c"} {
		_, _, err := a.PushMessage(ctx, bob, []byte(payload))
		require.NoError(err)
	}

	events, err := a.RollupCondEq(ctx, alice, &Transition{
		Conditions: []Pair{AbsentPair([]byte("version"))},
		Updates:    []Pair{NewPair([]byte("version"), []byte{1})},
		Actions: []Action{
			SetQueueHead(2),
			Reply([]byte("answer")),
		},
	})
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(MessageProcessedEvent, events[0].Kind)
	require.Equal(uint32(2), events[0].Index)
	require.Equal(ApplicationEvent, events[1].Kind)
	require.Equal(alice, events[1].Sender)

	head, err := a.QueueHead()
	require.NoError(err)
	require.Equal(uint32(2), head)
	message, err := a.GetMessage(1)
	require.NoError(err)
	require.True(message.IsNothing())

	last, err := a.state.App().Get([]byte("last"))
	require.NoError(err)
	require.Equal([]byte("answer"), last.Value())

	// Application storage is not visible through the anchor's own store.
	requireValue(t, a, "last", maybe.Nothing[[]byte]())
}

func TestRollupCondEqFailingActionRollsBack(t *testing.T) {
	tests := []struct {
		name        string
		actions     []Action
		expectedErr error
	}{
		{
			name:        "handler error",
			actions:     []Action{SetQueueHead(1), Reply([]byte("bad"))},
			expectedErr: ErrApplication,
		},
		{
			name:        "pop past tail",
			actions:     []Action{SetQueueHead(1), SetQueueHead(5)},
			expectedErr: ErrInvalidPopTarget,
		},
		{
			name:        "redundant grant",
			actions:     []Action{SetQueueHead(1), GrantAttestor(alice)},
			expectedErr: ErrRoleRedundant,
		},
		{
			name:        "unsupported action",
			actions:     []Action{SetQueueHead(1), {Type: 0x09}},
			expectedErr: ErrUnsupportedAction,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			config := newTestConfig(t)
			config.Handler = guessHandler{}
			a := newTestAnchor(t, config)

			_, _, err := a.PushMessage(ctx, bob, []byte("a"))
			require.NoError(err)
			before := journalLen(t, a)

			_, err = a.RollupCondEq(ctx, alice, &Transition{
				Updates: []Pair{NewPair([]byte("k"), []byte{1})},
				Actions: test.actions,
			})
			require.ErrorIs(err, test.expectedErr)

			requireValue(t, a, "k", maybe.Nothing[[]byte]())
			head, err := a.QueueHead()
			require.NoError(err)
			require.Zero(head)
			message, err := a.GetMessage(0)
			require.NoError(err)
			require.Equal([]byte("a"), message.Value())
			require.Equal(before, journalLen(t, a))
		})
	}
}

func TestRollupCondEqManagesAttestors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	a := newTestAnchor(t, newTestConfig(t))

	// Alice is an attestor but not an admin, so she cannot grant.
	_, err := a.RollupCondEq(ctx, alice, &Transition{
		Actions: []Action{GrantAttestor(bob)},
	})
	require.ErrorIs(err, ErrAccessControl)
	require.ErrorIs(err, ErrInvalidCaller)

	events, err := a.RollupCondEq(ctx, deployer, &Transition{
		Actions: []Action{GrantAttestor(bob)},
	})
	require.NoError(err)
	require.Len(events, 1)
	require.Equal(RoleGrantedEvent, events[0].Kind)
	require.Equal(AttestorRole, events[0].Role)

	// Attestors may remove themselves.
	_, err = a.RollupCondEq(ctx, bob, &Transition{
		Actions: []Action{RevokeAttestor(bob)},
	})
	require.NoError(err)

	_, err = a.RollupCondEq(ctx, bob, &Transition{})
	require.ErrorIs(err, ErrMissingRole)

	_, err = a.RollupCondEq(ctx, deployer, &Transition{
		Actions: []Action{RevokeAttestor(ids.ShortID{0x42})},
	})
	require.ErrorIs(err, ErrMissingRole)
}
