// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/ids"
)

var (
	_ MessageHandler = NopHandler{}
	_ HandlerEnv     = (*handlerEnv)(nil)
)

// MessageHandler reacts to Reply actions. A returned error aborts the whole
// call and is surfaced wrapped in ErrApplication.
type MessageHandler interface {
	OnMessageReceived(env HandlerEnv, payload []byte) error
}

// HandlerEnv is what a MessageHandler may observe and touch while it runs.
// Everything written through it belongs to the enclosing call.
type HandlerEnv interface {
	Context() context.Context
	// Caller is the account the transition is authorized as.
	Caller() ids.ShortID
	Now() time.Time
	Storage() KVStore
	// Emit records an ApplicationEvent carrying [data].
	Emit(data []byte)
}

// NopHandler accepts every reply and records it as an application event.
type NopHandler struct{}

func (NopHandler) OnMessageReceived(env HandlerEnv, payload []byte) error {
	env.Emit(payload)
	return nil
}

type handlerEnv struct {
	ctx    context.Context
	caller ids.ShortID
	now    time.Time
	store  KVStore
	sink   EventSink
}

func (e *handlerEnv) Context() context.Context { return e.ctx }

func (e *handlerEnv) Caller() ids.ShortID { return e.caller }

func (e *handlerEnv) Now() time.Time { return e.now }

func (e *handlerEnv) Storage() KVStore { return e.store }

func (e *handlerEnv) Emit(data []byte) {
	e.sink.Emit(Event{
		Kind:   ApplicationEvent,
		Sender: e.caller,
		Data:   data,
	})
}
