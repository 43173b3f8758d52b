// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"errors"
	"fmt"
	"math"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

// MessageQueue is a FIFO of opaque payloads. Entries live at indices in
// [head, tail).
type MessageQueue struct {
	state QueueState
}

func NewMessageQueue(state QueueState) *MessageQueue {
	return &MessageQueue{state: state}
}

func (q *MessageQueue) Head() (uint32, error) { return q.state.Head() }

func (q *MessageQueue) Tail() (uint32, error) { return q.state.Tail() }

// PushMessage stores [payload] at the current tail and returns its index.
func (q *MessageQueue) PushMessage(sink EventSink, payload []byte, enqueued int64) (uint32, error) {
	tail, err := q.state.Tail()
	if err != nil {
		return 0, err
	}
	if tail == math.MaxUint32 {
		return 0, ErrQueueIndexOverflow
	}

	entry := &QueueEntry{
		Payload:  payload,
		Enqueued: enqueued,
	}
	if err := q.state.PutEntry(tail, entry); err != nil {
		return 0, fmt.Errorf("failed to put queue entry %d: %w", tail, err)
	}
	if err := q.state.SetTail(tail + 1); err != nil {
		return 0, fmt.Errorf("failed to set queue tail: %w", err)
	}
	sink.Emit(Event{
		Kind:  MessageQueuedEvent,
		Index: tail,
		Data:  payload,
	})
	return tail, nil
}

// GetMessage returns the payload stored at [index], if any.
func (q *MessageQueue) GetMessage(index uint32) (maybe.Maybe[[]byte], error) {
	entry, err := q.state.GetEntry(index)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return maybe.Nothing[[]byte](), nil
	case err != nil:
		return maybe.Nothing[[]byte](), err
	}
	return maybe.Some(entry.Payload), nil
}

// HasMessage returns true iff tail > head.
func (q *MessageQueue) HasMessage() (bool, error) {
	head, tail, err := q.bounds()
	if err != nil {
		return false, err
	}
	return tail > head, nil
}

// Depth returns the number of live entries.
func (q *MessageQueue) Depth() (uint32, error) {
	head, tail, err := q.bounds()
	if err != nil {
		return 0, err
	}
	return tail - head, nil
}

// PopTo removes every entry in [head, target) and sets head to [target].
// Popping to the current head is a no-op.
func (q *MessageQueue) PopTo(sink EventSink, target uint32) error {
	head, tail, err := q.bounds()
	if err != nil {
		return err
	}
	if target < head || target > tail {
		return fmt.Errorf("%w: %d is outside [%d, %d]", ErrInvalidPopTarget, target, head, tail)
	}
	if target == head {
		return nil
	}

	for index := head; index < target; index++ {
		if err := q.state.DeleteEntry(index); err != nil {
			return fmt.Errorf("failed to delete queue entry %d: %w", index, err)
		}
	}
	if err := q.state.SetHead(target); err != nil {
		return fmt.Errorf("failed to set queue head: %w", err)
	}
	sink.Emit(Event{
		Kind:  MessageProcessedEvent,
		Index: target,
	})
	return nil
}

func (q *MessageQueue) bounds() (uint32, uint32, error) {
	head, err := q.state.Head()
	if err != nil {
		return 0, 0, err
	}
	tail, err := q.state.Tail()
	if err != nil {
		return 0, 0, err
	}
	return head, tail, nil
}
