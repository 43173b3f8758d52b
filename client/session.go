// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/wrappers"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/anchor"
	"github.com/ava-labs/rollupanchor/server"
	"github.com/ava-labs/rollupanchor/signer"
)

// DefaultVersionKey is the key a session bumps on every commit.
var DefaultVersionKey = []byte("version")

var (
	errNotStarted      = errors.New("session is not started")
	errMissingMessage  = errors.New("queued message is missing")
	errInvalidVersion  = errors.New("invalid version value")
	errHashMismatch    = errors.New("prepared hash does not match the signed request")
	errVersionOverflow = errors.New("version overflow")
)

// Submitter applies a transition built by a session.
type Submitter interface {
	Submit(ctx context.Context, transition *anchor.Transition) ([]server.Event, error)
}

// DirectSubmitter submits transitions with RollupCondEq as the client's
// authenticated caller.
type DirectSubmitter struct {
	Client Client
}

func (s DirectSubmitter) Submit(ctx context.Context, transition *anchor.Transition) ([]server.Event, error) {
	return s.Client.RollupCondEq(ctx, transition)
}

// MetaTxSubmitter signs transitions with [Key] and relays them with
// MetaTxRollupCondEq, so the submitting connection needs no attestor role.
type MetaTxSubmitter struct {
	Client Client
	Scheme signer.Scheme
	Key    *ecdsa.PrivateKey
}

func (s MetaTxSubmitter) Submit(ctx context.Context, transition *anchor.Transition) ([]server.Event, error) {
	data, err := anchor.MarshalTransition(transition)
	if err != nil {
		return nil, err
	}
	from := signer.Address(s.Scheme, s.Key)
	request, preparedHash, err := s.Client.Prepare(ctx, from, data)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", err)
	}
	requestBytes, err := anchor.MarshalRequest(request)
	if err != nil {
		return nil, err
	}
	hash, signature, err := signer.Sign(s.Scheme, s.Key, requestBytes)
	if err != nil {
		return nil, err
	}
	if hash != preparedHash {
		return nil, fmt.Errorf("%w: %s != %s", errHashMismatch, hash, preparedHash)
	}
	return s.Client.MetaTxRollupCondEq(ctx, request, signature)
}

// Session stages a transition from optimistic reads of the anchor. Every
// value read remotely becomes a condition of the commit, and the version key
// is bumped on every commit, so two sessions started from the same state
// can't both commit.
type Session struct {
	client     Client
	submitter  Submitter
	versionKey []byte
	log        log.Logger

	started bool
	version maybe.Maybe[[]byte]

	// reads and updates keep insertion order so the submitted transition is
	// deterministic.
	reads   []anchor.Pair
	updates []anchor.Pair
	replies [][]byte

	currentIndex maybe.Maybe[uint32]
	indexUpdated bool
}

func NewSession(client Client, submitter Submitter, logger log.Logger) *Session {
	return &Session{
		client:     client,
		submitter:  submitter,
		versionKey: DefaultVersionKey,
		log:        logger,
	}
}

// Start discards any staged state and reads the current version.
func (s *Session) Start(ctx context.Context) error {
	s.reset()
	version, err := s.GetValue(ctx, s.versionKey)
	if err != nil {
		return err
	}
	s.version = version
	s.started = true
	return nil
}

// Rollback discards the staged state and starts over.
func (s *Session) Rollback(ctx context.Context) error {
	return s.Start(ctx)
}

func (s *Session) reset() {
	s.started = false
	s.version = maybe.Nothing[[]byte]()
	s.reads = nil
	s.updates = nil
	s.replies = nil
	s.currentIndex = maybe.Nothing[uint32]()
	s.indexUpdated = false
}

// PollMessage returns the next unprocessed message, or nothing once the
// session has walked to the tail of the queue.
func (s *Session) PollMessage(ctx context.Context) (maybe.Maybe[[]byte], error) {
	if !s.started {
		return maybe.Nothing[[]byte](), errNotStarted
	}
	tail, err := s.client.QueueTail(ctx)
	if err != nil {
		return maybe.Nothing[[]byte](), err
	}
	if s.currentIndex.IsNothing() {
		head, err := s.client.QueueHead(ctx)
		if err != nil {
			return maybe.Nothing[[]byte](), err
		}
		s.currentIndex = maybe.Some(head)
	}
	index := s.currentIndex.Value()
	if index >= tail {
		return maybe.Nothing[[]byte](), nil
	}
	message, err := s.client.GetMessage(ctx, index)
	if err != nil {
		return maybe.Nothing[[]byte](), err
	}
	if message.IsNothing() {
		return maybe.Nothing[[]byte](), fmt.Errorf("%w: %d", errMissingMessage, index)
	}
	s.currentIndex = maybe.Some(index + 1)
	s.indexUpdated = true
	return message, nil
}

// GetValue returns the value of [key] as seen by this session: a staged
// update if there is one, otherwise the value read remotely, which is cached
// and recorded as a condition.
func (s *Session) GetValue(ctx context.Context, key []byte) (maybe.Maybe[[]byte], error) {
	if pair, ok := find(s.updates, key); ok {
		return pair.Value, nil
	}
	if pair, ok := find(s.reads, key); ok {
		return pair.Value, nil
	}
	value, err := s.client.GetValue(ctx, key)
	if err != nil {
		return maybe.Nothing[[]byte](), err
	}
	s.reads = append(s.reads, anchor.Pair{Key: key, Value: value})
	return value, nil
}

func (s *Session) SetValue(key, value []byte) {
	s.stage(anchor.NewPair(key, value))
}

func (s *Session) RemoveValue(key []byte) {
	s.stage(anchor.AbsentPair(key))
}

func (s *Session) stage(pair anchor.Pair) {
	for i := range s.updates {
		if bytes.Equal(s.updates[i].Key, pair.Key) {
			s.updates[i] = pair
			return
		}
	}
	s.updates = append(s.updates, pair)
}

// AddReply stages a reply action carrying [payload].
func (s *Session) AddReply(payload []byte) {
	s.replies = append(s.replies, payload)
}

func (s *Session) HasUpdates() bool {
	return s.indexUpdated || len(s.updates) > 0 || len(s.replies) > 0
}

// Transition returns the transition Commit would submit.
func (s *Session) Transition() (*anchor.Transition, error) {
	if !s.started {
		return nil, errNotStarted
	}
	newVersion, err := bumpVersion(s.version)
	if err != nil {
		return nil, err
	}

	transition := &anchor.Transition{
		Conditions: append([]anchor.Pair(nil), s.reads...),
		Updates:    []anchor.Pair{anchor.NewPair(s.versionKey, newVersion)},
	}
	for _, update := range s.updates {
		if bytes.Equal(update.Key, s.versionKey) {
			continue
		}
		transition.Updates = append(transition.Updates, update)
	}
	if s.indexUpdated && s.currentIndex.HasValue() {
		transition.Actions = append(transition.Actions, anchor.SetQueueHead(s.currentIndex.Value()))
	}
	for _, reply := range s.replies {
		transition.Actions = append(transition.Actions, anchor.Reply(reply))
	}
	return transition, nil
}

// Commit submits the staged transition and starts a new session. It returns
// nothing, and submits nothing, if nothing was staged.
func (s *Session) Commit(ctx context.Context) ([]server.Event, error) {
	if !s.HasUpdates() {
		s.log.Debug("nothing to commit")
		return nil, nil
	}
	transition, err := s.Transition()
	if err != nil {
		return nil, err
	}
	s.log.Debug("committing session",
		"conditions", len(transition.Conditions),
		"updates", len(transition.Updates),
		"actions", len(transition.Actions),
	)
	events, err := s.submitter.Submit(ctx, transition)
	if err != nil {
		return nil, err
	}
	return events, s.Start(ctx)
}

func find(pairs []anchor.Pair, key []byte) (anchor.Pair, bool) {
	for _, pair := range pairs {
		if bytes.Equal(pair.Key, key) {
			return pair, true
		}
	}
	return anchor.Pair{}, false
}

// EncodeVersion returns the stored form of a version number.
func EncodeVersion(version uint64) []byte {
	p := wrappers.Packer{Bytes: make([]byte, wrappers.LongLen)}
	p.PackLong(version)
	return p.Bytes
}

// DecodeVersion parses a value written by EncodeVersion.
func DecodeVersion(b []byte) (uint64, error) {
	p := wrappers.Packer{Bytes: b}
	version := p.UnpackLong()
	if p.Errored() || p.Offset != len(b) {
		return 0, fmt.Errorf("%w: %x", errInvalidVersion, b)
	}
	return version, nil
}

func bumpVersion(current maybe.Maybe[[]byte]) ([]byte, error) {
	if current.IsNothing() {
		return EncodeVersion(1), nil
	}
	version, err := DecodeVersion(current.Value())
	if err != nil {
		return nil, err
	}
	if version == ^uint64(0) {
		return nil, errVersionOverflow
	}
	return EncodeVersion(version + 1), nil
}
