// Package access tracks which principals hold which roles. Roles are an
// open, string-keyed namespace: any name can be granted at call time, and
// absent roles simply answer false on membership queries. Callers are
// expected to use shared constants for role names.
package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/prodvault/prodvault/internal/platform/kv"
)

// Principal identifies a caller. It is the unit of authorization.
type Principal string

const rolePrefix = "role:"

// Control maps a role name to the set of principals holding it. Every role
// is persisted under its own key in the kv store.
type Control struct {
	store kv.Store
}

// New constructs a Control over the given store.
func New(store kv.Store) *Control {
	return &Control{store: store}
}

// SetupRole adds principal to the holders of role. Granting is additive and
// idempotent: granting an already-held role is a no-op reported as success.
// Absent roles are created on first grant. Roles, once granted, persist for
// the lifetime of the registry; there is no revocation.
func (c *Control) SetupRole(ctx context.Context, role string, principal Principal) error {
	holders, err := c.load(ctx, role)
	if err != nil {
		return err
	}
	for _, held := range holders {
		if held == principal {
			return nil
		}
	}
	holders = append(holders, principal)
	sort.Slice(holders, func(i, j int) bool { return holders[i] < holders[j] })
	payload, err := json.Marshal(holders)
	if err != nil {
		return fmt.Errorf("access: marshal role %q: %w", role, err)
	}
	if err := c.store.Set(ctx, rolePrefix+role, payload); err != nil {
		return fmt.Errorf("access: persist role %q: %w", role, err)
	}
	return nil
}

// HasRole reports whether principal currently holds role. An absent role or
// an absent principal within an existing role both yield false.
func (c *Control) HasRole(ctx context.Context, role string, principal Principal) (bool, error) {
	holders, err := c.load(ctx, role)
	if err != nil {
		return false, err
	}
	for _, held := range holders {
		if held == principal {
			return true, nil
		}
	}
	return false, nil
}

func (c *Control) load(ctx context.Context, role string) ([]Principal, error) {
	payload, err := c.store.Get(ctx, rolePrefix+role)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("access: load role %q: %w", role, err)
	}
	var holders []Principal
	if err := json.Unmarshal(payload, &holders); err != nil {
		return nil, fmt.Errorf("access: decode role %q: %w", role, err)
	}
	return holders, nil
}
