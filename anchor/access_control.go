// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
)

// AccessControl gates writers on (account, role) membership.
type AccessControl struct {
	roles RoleState
}

func NewAccessControl(roles RoleState) *AccessControl {
	return &AccessControl{roles: roles}
}

// HasRole returns true iff [account] holds [role].
func (ac *AccessControl) HasRole(role Role, account ids.ShortID) (bool, error) {
	return ac.roles.HasRole(role, account)
}

// CheckRole returns ErrMissingRole if [account] does not hold [role].
func (ac *AccessControl) CheckRole(role Role, account ids.ShortID) error {
	has, err := ac.roles.HasRole(role, account)
	if err != nil {
		return fmt.Errorf("failed to check %s for %s: %w", role, account, err)
	}
	if !has {
		return fmt.Errorf("%w: %s does not hold %s", ErrMissingRole, account, role)
	}
	return nil
}

// GrantRole adds [role] to [account]. [caller] must be an admin.
func (ac *AccessControl) GrantRole(sink EventSink, caller ids.ShortID, role Role, account ids.ShortID) error {
	isAdmin, err := ac.roles.HasRole(AdminRole, caller)
	if err != nil {
		return fmt.Errorf("failed to check %s for %s: %w", AdminRole, caller, err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: %s cannot grant %s", ErrInvalidCaller, caller, role)
	}

	has, err := ac.roles.HasRole(role, account)
	if err != nil {
		return fmt.Errorf("failed to check %s for %s: %w", role, account, err)
	}
	if has {
		return fmt.Errorf("%w: %s already holds %s", ErrRoleRedundant, account, role)
	}
	return ac.grant(sink, caller, role, account)
}

// RevokeRole removes [role] from [account]. [caller] must be [account] itself
// or an admin.
func (ac *AccessControl) RevokeRole(sink EventSink, caller ids.ShortID, role Role, account ids.ShortID) error {
	if caller != account {
		isAdmin, err := ac.roles.HasRole(AdminRole, caller)
		if err != nil {
			return fmt.Errorf("failed to check %s for %s: %w", AdminRole, caller, err)
		}
		if !isAdmin {
			return fmt.Errorf("%w: %s cannot revoke %s from %s", ErrInvalidCaller, caller, role, account)
		}
	}

	if err := ac.CheckRole(role, account); err != nil {
		return err
	}
	if err := ac.roles.RemoveRole(role, account); err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", role, account, err)
	}
	sink.Emit(Event{
		Kind:    RoleRevokedEvent,
		Role:    role,
		Account: account,
		Sender:  caller,
	})
	return nil
}

func (ac *AccessControl) RenounceRole(sink EventSink, caller ids.ShortID, role Role) error {
	return ac.RevokeRole(sink, caller, role, caller)
}

// InitWithAdmin grants AdminRole to [admin] without checking [caller]. It is
// only used while bootstrapping, when no admin exists yet.
func (ac *AccessControl) InitWithAdmin(sink EventSink, caller ids.ShortID, admin ids.ShortID) error {
	return ac.grant(sink, caller, AdminRole, admin)
}

func (ac *AccessControl) grant(sink EventSink, caller ids.ShortID, role Role, account ids.ShortID) error {
	if err := ac.roles.AddRole(role, account); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", role, account, err)
	}
	sink.Emit(Event{
		Kind:    RoleGrantedEvent,
		Role:    role,
		Account: account,
		Sender:  caller,
	})
	return nil
}
