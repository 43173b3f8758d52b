// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/oklog/ulid/v2"
)

var errUnknownEventKind = errors.New("unknown event kind")

// EventKind identifies the notification carried by an Event.
type EventKind byte

const (
	RoleGrantedEvent EventKind = iota + 1
	RoleRevokedEvent
	MessageQueuedEvent
	MessageProcessedEvent
	MetaTransactionDecodedEvent
	OwnershipTransferredEvent
	ApplicationEvent
)

var eventKindNames = map[EventKind]string{
	RoleGrantedEvent:            "RoleGranted",
	RoleRevokedEvent:            "RoleRevoked",
	MessageQueuedEvent:          "MessageQueued",
	MessageProcessedEvent:       "MessageProcessed",
	MetaTransactionDecodedEvent: "MetaTransactionDecoded",
	OwnershipTransferredEvent:   "OwnershipTransferred",
	ApplicationEvent:            "Application",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", byte(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w %q", errUnknownEventKind, text)
}

// Event is a side-channel notification for indexers and workers.
// Field usage by kind:
//
//	RoleGranted/RoleRevoked: Role, Account (grantee/revoked), Sender
//	MessageQueued:           Index, Data (payload)
//	MessageProcessed:        Index (new head)
//	OwnershipTransferred:    Account (new owner), Sender (old owner)
//	Application:             Sender (effective caller), Data
//
// ID is assigned when the event is journaled.
type Event struct {
	ID        ulid.ULID   `json:"id"`
	Kind      EventKind   `serialize:"true" json:"kind"`
	Role      Role        `serialize:"true" json:"role"`
	Account   ids.ShortID `serialize:"true" json:"account"`
	Sender    ids.ShortID `serialize:"true" json:"sender"`
	Index     uint32      `serialize:"true" json:"index"`
	Data      []byte      `serialize:"true" json:"data"`
	Timestamp int64       `serialize:"true" json:"timestamp"`
}

// EventSink receives the events emitted during a call.
type EventSink interface {
	Emit(Event)
}

// Recorder is an EventSink that keeps events in emission order.
type Recorder struct {
	events []Event
}

func (r *Recorder) Emit(e Event) { r.events = append(r.events, e) }

func (r *Recorder) Events() []Event { return r.events }

func (r *Recorder) Reset() { r.events = nil }
