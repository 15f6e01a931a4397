// Package registry owns the keyed product store and the owner identity. All
// mutating operations are gated either by role membership (via the access
// package) or by single-owner identity.
package registry

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/prodvault/prodvault/internal/access"
)

// Built-in roles. The role namespace is open, but the registry relies on
// exactly these two names; use the constants to avoid silent typo failures.
const (
	RoleSetProduct    = "ROLE_SET_PRODUCT"
	RoleDeleteProduct = "ROLE_DELETE_PRODUCT"
)

// AuthzCode is the stable code surfaced when a caller lacks a required role,
// so calling integrations can branch on it.
const AuthzCode = "401"

// Item is a stored product record. Price is a non-negative integer wide
// enough for 128-bit monetary values. Zero price, empty name and zero stock
// are all legal; no further validation is applied.
type Item struct {
	Name  string   `json:"name"`
	Price *big.Int `json:"price"`
	Stock uint8    `json:"stock"`
}

var (
	// ErrAlreadyInitialized indicates a second initialization attempt. The
	// existing state is left untouched.
	ErrAlreadyInitialized = errors.New("registry: already initialized")
	// ErrNotInitialized indicates an operation before initialization.
	ErrNotInitialized = errors.New("registry: not initialized")
	// ErrNotOwner indicates an owner-gated operation by a non-owner caller.
	ErrNotOwner = errors.New("registry: caller is not the owner")
	// ErrNotFound indicates the requested item key has never been set or was
	// deleted. Absent reads are a successful outcome, not a failure.
	ErrNotFound = errors.New("registry: item not found")
	// ErrNoPrincipal indicates the call carried no caller identity.
	ErrNoPrincipal = errors.New("registry: missing principal")
	// ErrNegativePrice indicates a price outside the unsigned 128-bit width.
	ErrNegativePrice = errors.New("registry: price must be non-negative")
)

// AuthorizationError reports that a caller lacks a required role. Its code
// is always AuthzCode.
type AuthorizationError struct {
	Role      string
	Principal access.Principal
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("registry: %s: principal %q lacks role %s", AuthzCode, e.Principal, e.Role)
}

// Code returns the stable authorization failure code.
func (e *AuthorizationError) Code() string { return AuthzCode }
