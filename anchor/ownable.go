// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

// Ownable tracks a single optional owner. An absent owner is reported as
// ids.ShortEmpty in OwnershipTransferred events.
type Ownable struct {
	state SingletonState
}

func NewOwnable(state SingletonState) *Ownable {
	return &Ownable{state: state}
}

func (o *Ownable) Owner() (maybe.Maybe[ids.ShortID], error) {
	return o.state.Owner()
}

// CheckOwner returns ErrCallerNotOwner unless [caller] is the current owner.
func (o *Ownable) CheckOwner(caller ids.ShortID) error {
	owner, err := o.state.Owner()
	if err != nil {
		return err
	}
	if owner.IsNothing() || owner.Value() != caller {
		return fmt.Errorf("%w: %s", ErrCallerNotOwner, caller)
	}
	return nil
}

func (o *Ownable) TransferOwnership(sink EventSink, caller ids.ShortID, newOwner maybe.Maybe[ids.ShortID]) error {
	if err := o.CheckOwner(caller); err != nil {
		return err
	}
	return o.setOwner(sink, caller, newOwner)
}

func (o *Ownable) RenounceOwnership(sink EventSink, caller ids.ShortID) error {
	return o.TransferOwnership(sink, caller, maybe.Nothing[ids.ShortID]())
}

// InitWithOwner sets [owner] without checking the caller.
func (o *Ownable) InitWithOwner(sink EventSink, owner ids.ShortID) error {
	return o.setOwner(sink, ids.ShortEmpty, maybe.Some(owner))
}

func (o *Ownable) setOwner(sink EventSink, oldOwner ids.ShortID, newOwner maybe.Maybe[ids.ShortID]) error {
	if err := o.state.SetOwner(newOwner); err != nil {
		return fmt.Errorf("failed to set owner: %w", err)
	}
	sink.Emit(Event{
		Kind:    OwnershipTransferredEvent,
		Account: newOwner.Value(),
		Sender:  oldOwner,
	})
	return nil
}
