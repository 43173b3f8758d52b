// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import "errors"

var (
	// Access control
	ErrInvalidCaller = errors.New("invalid caller")
	ErrMissingRole   = errors.New("missing role")
	ErrRoleRedundant = errors.New("role redundant")

	// ErrAccessControl wraps any of the access control errors when they are
	// surfaced through the transition engine or the forwarder.
	ErrAccessControl = errors.New("access control error")

	// Message queue
	ErrInvalidPopTarget   = errors.New("invalid pop target")
	ErrQueueIndexOverflow = errors.New("queue index overflow")

	// Transition engine
	ErrConditionNotMet   = errors.New("condition not met")
	ErrUnsupportedAction = errors.New("unsupported action")

	// Meta transactions
	ErrInvalidDestination = errors.New("invalid destination")
	ErrNonceTooLow        = errors.New("nonce too low")
	ErrNonceOverflow      = errors.New("nonce overflow")
	ErrIncorrectSignature = errors.New("incorrect signature")
	ErrPublicKeyNotMatch  = errors.New("public key does not match")

	ErrFailedToDecode = errors.New("failed to decode")

	// ErrApplication wraps failures returned by the message handler.
	ErrApplication = errors.New("application error")

	ErrCallerNotOwner = errors.New("caller is not owner")

	errNotInitialized = errors.New("anchor is not initialized")
	errClosed         = errors.New("anchor is closed")
)
