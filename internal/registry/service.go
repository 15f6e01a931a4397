package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/kv"
	"github.com/prodvault/prodvault/internal/shared"
)

const (
	ownerKey   = "owner"
	itemPrefix = "item:"
)

// Service is the registry state machine: Uninitialized until Initialize
// succeeds, Initialized forever after. The original design assumed the host
// serialized calls; a single mutex restores that discipline for mutations
// under a concurrent HTTP host.
type Service struct {
	mu     sync.Mutex
	store  kv.Store
	access *access.Control
	audit  shared.AuditRecorder
	logger *slog.Logger
	reads  singleflight.Group
}

// NewService constructs a Service over the given store and access control.
// The audit recorder may be nil, in which case no trail is written.
func NewService(store kv.Store, ctrl *access.Control, recorder shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, access: ctrl, audit: recorder, logger: logger}
}

// Initialize creates the empty registry state, records caller as owner and
// grants the caller both built-in roles. It fails with ErrAlreadyInitialized
// when state already exists, leaving that state untouched.
func (s *Service) Initialize(ctx context.Context, caller access.Principal) error {
	if caller == "" {
		return ErrNoPrincipal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetIfAbsent(ctx, ownerKey, []byte(caller)); err != nil {
		if errors.Is(err, kv.ErrExists) {
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("registry: persist owner: %w", err)
	}
	if err := s.access.SetupRole(ctx, RoleSetProduct, caller); err != nil {
		return err
	}
	if err := s.access.SetupRole(ctx, RoleDeleteProduct, caller); err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		Actor:    caller,
		Action:   "registry.initialize",
		Entity:   "registry",
		EntityID: "registry",
		Summary:  fmt.Sprintf("registry initialized by %q", caller),
	})
	return nil
}

// Owner returns the current owner, or ErrNotInitialized.
func (s *Service) Owner(ctx context.Context) (access.Principal, error) {
	value, err := s.store.Get(ctx, ownerKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrNotInitialized
		}
		return "", fmt.Errorf("registry: load owner: %w", err)
	}
	return access.Principal(value), nil
}

// TransferOwner reassigns ownership to newOwner. Only the current owner may
// transfer. Role membership is untouched: the previous owner keeps any roles
// granted earlier; only the ability to grant and transfer moves.
func (s *Service) TransferOwner(ctx context.Context, caller, newOwner access.Principal) error {
	if newOwner == "" {
		return ErrNoPrincipal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.store.Set(ctx, ownerKey, []byte(newOwner)); err != nil {
		return fmt.Errorf("registry: persist owner: %w", err)
	}
	s.record(ctx, shared.AuditLog{
		Actor:    caller,
		Action:   "registry.transfer_owner",
		Entity:   "registry",
		EntityID: "registry",
		Summary:  fmt.Sprintf("ownership transferred from %q to %q", caller, newOwner),
		Meta:     map[string]any{"new_owner": string(newOwner)},
	})
	return nil
}

// GrantSetRole grants ROLE_SET_PRODUCT to principal. Owner-gated.
func (s *Service) GrantSetRole(ctx context.Context, caller, principal access.Principal) error {
	return s.grantRole(ctx, caller, principal, RoleSetProduct)
}

// GrantDeleteRole grants ROLE_DELETE_PRODUCT to principal. Owner-gated.
func (s *Service) GrantDeleteRole(ctx context.Context, caller, principal access.Principal) error {
	return s.grantRole(ctx, caller, principal, RoleDeleteProduct)
}

func (s *Service) grantRole(ctx context.Context, caller, principal access.Principal, role string) error {
	if principal == "" {
		return ErrNoPrincipal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.assertOwner(ctx, caller); err != nil {
		return err
	}
	if err := s.access.SetupRole(ctx, role, principal); err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		Actor:    caller,
		Action:   "registry.grant_role",
		Entity:   "role",
		EntityID: role,
		Summary:  fmt.Sprintf("role %s granted to %q", role, principal),
		Meta:     map[string]any{"role": role, "principal": string(principal)},
	})
	return nil
}

// HasRole reports whether principal holds role. Exposed for bootstrap checks
// and tests; it is a pure query.
func (s *Service) HasRole(ctx context.Context, role string, principal access.Principal) (bool, error) {
	return s.access.HasRole(ctx, role, principal)
}

// SetItem stores item at key, fully replacing any prior item. The caller
// must hold ROLE_SET_PRODUCT.
func (s *Service) SetItem(ctx context.Context, caller access.Principal, key string, item Item) error {
	if caller == "" {
		return ErrNoPrincipal
	}
	if item.Price == nil {
		item.Price = new(big.Int)
	}
	if item.Price.Sign() < 0 {
		return ErrNegativePrice
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Owner(ctx); err != nil {
		return err
	}
	if err := s.requireRole(ctx, RoleSetProduct, caller); err != nil {
		return err
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("registry: encode item: %w", err)
	}
	if err := s.store.Set(ctx, itemPrefix+key, payload); err != nil {
		return fmt.Errorf("registry: persist item: %w", err)
	}
	s.record(ctx, shared.AuditLog{
		Actor:    caller,
		Action:   "product.set",
		Entity:   "product",
		EntityID: key,
		Summary:  fmt.Sprintf("set product %q name=%q price=%s stock=%d", key, item.Name, item.Price.String(), item.Stock),
		Meta: map[string]any{
			"key":   key,
			"name":  item.Name,
			"price": item.Price.String(),
			"stock": item.Stock,
		},
	})
	return nil
}

// GetItem returns the item at key or ErrNotFound. Readable by any caller;
// concurrent reads of the same key are collapsed onto one backend fetch.
func (s *Service) GetItem(ctx context.Context, key string) (Item, error) {
	value, err, _ := s.reads.Do(key, func() (any, error) {
		return s.store.Get(ctx, itemPrefix+key)
	})
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("registry: load item: %w", err)
	}
	var item Item
	if err := json.Unmarshal(value.([]byte), &item); err != nil {
		return Item{}, fmt.Errorf("registry: decode item: %w", err)
	}
	if item.Price == nil {
		item.Price = new(big.Int)
	}
	return item, nil
}

// DeleteItem removes the item at key. Deleting an absent key is a legal
// no-op. The caller must hold ROLE_DELETE_PRODUCT.
func (s *Service) DeleteItem(ctx context.Context, caller access.Principal, key string) error {
	if caller == "" {
		return ErrNoPrincipal
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Owner(ctx); err != nil {
		return err
	}
	if err := s.requireRole(ctx, RoleDeleteProduct, caller); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, itemPrefix+key); err != nil {
		return fmt.Errorf("registry: delete item: %w", err)
	}
	s.record(ctx, shared.AuditLog{
		Actor:    caller,
		Action:   "product.delete",
		Entity:   "product",
		EntityID: key,
		Summary:  fmt.Sprintf("delete product %q", key),
		Meta:     map[string]any{"key": key},
	})
	return nil
}

func (s *Service) assertOwner(ctx context.Context, caller access.Principal) error {
	owner, err := s.Owner(ctx)
	if err != nil {
		return err
	}
	if caller == "" || caller != owner {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) requireRole(ctx context.Context, role string, caller access.Principal) error {
	held, err := s.access.HasRole(ctx, role, caller)
	if err != nil {
		return err
	}
	if !held {
		return &AuthorizationError{Role: role, Principal: caller}
	}
	return nil
}

// Audit failures never abort the mutation; the trail is write-only.
func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", log.Action), slog.Any("error", err))
	}
}
