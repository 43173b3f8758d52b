// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/avalanchego/version"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/rollupanchor/signer"
)

const (
	Name = "rollupanchor"

	defaultNamespace = "anchor"
)

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	errNoScheme        = errors.New("no signature scheme configured")
	errNoGenesis       = errors.New("no genesis provided")
	errPayloadTooLarge = errors.New("payload too large")
)

// Config is the static configuration of an Anchor.
type Config struct {
	// ID is the anchor's own identity. Forward requests must name it as
	// their destination.
	ID ids.ShortID
	// Scheme hashes forward requests and derives signer identities.
	Scheme signer.Scheme
	// Handler receives Reply actions. Defaults to NopHandler.
	Handler MessageHandler
	// RestrictPush limits PushMessage to admins.
	RestrictPush bool

	Log        log.Logger
	Namespace  string
	Registerer prometheus.Registerer
	Clock      *mockable.Clock
}

// Anchor is the rollup anchor. Every public method is serialized on a single
// lock, and every mutating method is all-or-nothing: either all of its writes
// and events are committed, or none are.
type Anchor struct {
	config Config
	log    log.Logger
	clock  *mockable.Clock

	lock   sync.Mutex
	closed bool

	state   State
	access  *AccessControl
	queue   *MessageQueue
	ownable *Ownable
	handler MessageHandler
	metrics *metrics
}

// New returns an anchor persisting its state in [db].
func New(db database.Database, config Config) (*Anchor, error) {
	if config.Scheme == nil {
		return nil, errNoScheme
	}
	if config.Handler == nil {
		config.Handler = NopHandler{}
	}
	if config.Log == nil {
		config.Log = log.New()
	}
	if config.Namespace == "" {
		config.Namespace = defaultNamespace
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.NewRegistry()
	}
	if config.Clock == nil {
		config.Clock = &mockable.Clock{}
	}

	m, err := newMetrics(config.Namespace, config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	state := NewState(db)
	a := &Anchor{
		config:  config,
		log:     config.Log.New("component", "anchor", "id", config.ID),
		clock:   config.Clock,
		state:   state,
		access:  NewAccessControl(state),
		queue:   NewMessageQueue(state),
		ownable: NewOwnable(state),
		handler: config.Handler,
		metrics: m,
	}
	if depth, err := a.queue.Depth(); err == nil {
		a.metrics.queueDepth.Set(float64(depth))
	}
	a.log.Info("created anchor", "version", Version, "scheme", config.Scheme.Name())
	return a, nil
}

// ID returns the identity forward requests must be addressed to.
func (a *Anchor) ID() ids.ShortID { return a.config.ID }

// IsInitialized reports whether the store has been bootstrapped.
func (a *Anchor) IsInitialized() (bool, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return false, errClosed
	}
	return a.state.IsInitialized()
}

// Initialize bootstraps an empty store from [genesis]. It is a no-op if the
// store was already initialized.
func (a *Anchor) Initialize(ctx context.Context, genesis *Genesis) ([]Event, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if err := a.checkOpen(ctx); err != nil {
		return nil, err
	}
	if genesis == nil {
		return nil, errNoGenesis
	}
	initialized, err := a.state.IsInitialized()
	if err != nil {
		return nil, err
	}
	if initialized {
		a.log.Info("anchor already initialized")
		return nil, nil
	}

	events, err := a.commit("initialize", func(_ time.Time, sink EventSink) error {
		deployer := genesis.Deployer
		if err := a.ownable.InitWithOwner(sink, deployer); err != nil {
			return err
		}
		if err := a.access.InitWithAdmin(sink, deployer, deployer); err != nil {
			return err
		}
		if err := a.access.GrantRole(sink, deployer, AttestorRole, deployer); err != nil {
			return err
		}
		for _, admin := range genesis.Admins {
			if admin == deployer {
				continue
			}
			if err := a.access.GrantRole(sink, deployer, AdminRole, admin); err != nil {
				return err
			}
		}
		for _, attestor := range genesis.Attestors {
			if attestor == deployer {
				continue
			}
			if err := a.access.GrantRole(sink, deployer, AttestorRole, attestor); err != nil {
				return err
			}
		}
		kv := a.state.KV()
		for _, value := range genesis.Values {
			if err := kv.Set(value.Key, maybe.Some(value.Value)); err != nil {
				return fmt.Errorf("failed to write genesis value 0x%x: %w", value.Key, err)
			}
		}
		return a.state.SetInitialized()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize anchor: %w", err)
	}
	a.log.Info("initialized anchor",
		"deployer", genesis.Deployer,
		"admins", len(genesis.Admins),
		"attestors", len(genesis.Attestors),
		"values", len(genesis.Values),
	)
	return events, nil
}

func (a *Anchor) HasRole(role Role, account ids.ShortID) (bool, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return false, errClosed
	}
	return a.access.HasRole(role, account)
}

func (a *Anchor) GrantRole(ctx context.Context, caller ids.ShortID, role Role, account ids.ShortID) ([]Event, error) {
	return a.execute(ctx, "grantRole", func(_ time.Time, sink EventSink) error {
		return a.access.GrantRole(sink, caller, role, account)
	})
}

func (a *Anchor) RevokeRole(ctx context.Context, caller ids.ShortID, role Role, account ids.ShortID) ([]Event, error) {
	return a.execute(ctx, "revokeRole", func(_ time.Time, sink EventSink) error {
		return a.access.RevokeRole(sink, caller, role, account)
	})
}

func (a *Anchor) RenounceRole(ctx context.Context, caller ids.ShortID, role Role) ([]Event, error) {
	return a.execute(ctx, "renounceRole", func(_ time.Time, sink EventSink) error {
		return a.access.RenounceRole(sink, caller, role)
	})
}

// GetValue returns the application value stored at [key].
func (a *Anchor) GetValue(key []byte) (maybe.Maybe[[]byte], error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return maybe.Nothing[[]byte](), errClosed
	}
	return a.state.KV().Get(key)
}

func (a *Anchor) HasMessage() (bool, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return false, errClosed
	}
	return a.queue.HasMessage()
}

// PushMessage appends [payload] to the queue and returns its index.
func (a *Anchor) PushMessage(ctx context.Context, caller ids.ShortID, payload []byte) (uint32, []Event, error) {
	var index uint32
	events, err := a.execute(ctx, "pushMessage", func(now time.Time, sink EventSink) error {
		if len(payload) > MaxPayloadSize {
			return fmt.Errorf("%w: %d bytes", errPayloadTooLarge, len(payload))
		}
		if a.config.RestrictPush {
			if err := a.access.CheckRole(AdminRole, caller); err != nil {
				return fmt.Errorf("%w: %w", ErrAccessControl, err)
			}
		}
		var err error
		index, err = a.queue.PushMessage(sink, payload, now.Unix())
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return index, events, nil
}

// GetMessage returns the payload queued at [index], if it was not consumed.
func (a *Anchor) GetMessage(index uint32) (maybe.Maybe[[]byte], error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return maybe.Nothing[[]byte](), errClosed
	}
	return a.queue.GetMessage(index)
}

func (a *Anchor) QueueHead() (uint32, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return 0, errClosed
	}
	return a.queue.Head()
}

func (a *Anchor) QueueTail() (uint32, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return 0, errClosed
	}
	return a.queue.Tail()
}

// Nonce returns the next meta transaction nonce of [account].
func (a *Anchor) Nonce(account ids.ShortID) (uint64, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return 0, errClosed
	}
	return a.state.Nonce(account)
}

func (a *Anchor) Owner() (maybe.Maybe[ids.ShortID], error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return maybe.Nothing[ids.ShortID](), errClosed
	}
	return a.ownable.Owner()
}

// TransferOwnership hands ownership to [newOwner]. Nothing leaves the anchor
// without an owner.
func (a *Anchor) TransferOwnership(ctx context.Context, caller ids.ShortID, newOwner maybe.Maybe[ids.ShortID]) ([]Event, error) {
	return a.execute(ctx, "transferOwnership", func(_ time.Time, sink EventSink) error {
		return a.ownable.TransferOwnership(sink, caller, newOwner)
	})
}

func (a *Anchor) RenounceOwnership(ctx context.Context, caller ids.ShortID) ([]Event, error) {
	return a.execute(ctx, "renounceOwnership", func(_ time.Time, sink EventSink) error {
		return a.ownable.RenounceOwnership(sink, caller)
	})
}

// Events returns up to [limit] journaled events after [after].
func (a *Anchor) Events(after ulid.ULID, limit int) ([]Event, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return nil, errClosed
	}
	return a.state.Events(after, limit)
}

// Close releases the anchor's state. Later calls fail.
func (a *Anchor) Close() error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.closed {
		return errClosed
	}
	a.closed = true
	a.state.Abort()
	return a.state.Close()
}

func (a *Anchor) checkOpen(ctx context.Context) error {
	if a.closed {
		return errClosed
	}
	return ctx.Err()
}

// execute runs [f] as one call on an initialized anchor.
func (a *Anchor) execute(ctx context.Context, op string, f func(now time.Time, sink EventSink) error) ([]Event, error) {
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
	return a.commit(op, f)
}

// commit runs [f] against the pending state. If [f] succeeds, the events it
// emitted are journaled and everything is committed together. Otherwise all
// of its writes are dropped. Assumes [a.lock] is held.
func (a *Anchor) commit(op string, f func(now time.Time, sink EventSink) error) ([]Event, error) {
	events, err := a.apply(op, f)
	a.metrics.observeCall(op, err)
	if err != nil {
		a.log.Debug("call failed", "op", op, "err", err)
		return nil, err
	}
	a.metrics.observeEvents(events)
	if depth, err := a.queue.Depth(); err == nil {
		a.metrics.queueDepth.Set(float64(depth))
	}
	a.log.Debug("call committed", "op", op, "events", len(events))
	return events, nil
}

func (a *Anchor) apply(op string, f func(now time.Time, sink EventSink) error) ([]Event, error) {
	now := a.clock.Time()
	recorder := &Recorder{}
	if err := f(now, recorder); err != nil {
		a.state.Abort()
		return nil, err
	}
	events, err := a.state.Append(recorder.Events(), now)
	if err != nil {
		a.state.Abort()
		return nil, err
	}
	if err := a.state.Commit(); err != nil {
		a.state.Abort()
		return nil, fmt.Errorf("failed to commit %s: %w", op, err)
	}
	return events, nil
}
