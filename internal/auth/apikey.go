// Package auth resolves the calling principal for HTTP requests. Keys take
// the form pv_<id>.<secret>; only a bcrypt hash of the secret is stored.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/kv"
)

const (
	keyStorePrefix = "apikey:"
	tokenPrefix    = "pv_"
)

// ErrInvalidToken indicates a malformed, unknown or mismatching API key.
var ErrInvalidToken = errors.New("auth: invalid api key")

type keyRecord struct {
	Principal string    `json:"principal"`
	Hash      []byte    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager issues and verifies API keys through the kv store.
type Manager struct {
	store kv.Store
	cost  int
}

// NewManager constructs a Manager. A non-positive cost selects the bcrypt
// default.
func NewManager(store kv.Store, cost int) *Manager {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Manager{store: store, cost: cost}
}

// Issue mints a new API key for principal and returns the full token. The
// secret is not recoverable afterwards.
func (m *Manager) Issue(ctx context.Context, principal access.Principal) (string, error) {
	if principal == "" {
		return "", errors.New("auth: principal required")
	}
	id := uuid.NewString()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generate secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), m.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash secret: %w", err)
	}
	payload, err := json.Marshal(keyRecord{
		Principal: string(principal),
		Hash:      hash,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("auth: encode key record: %w", err)
	}
	if err := m.store.SetIfAbsent(ctx, keyStorePrefix+id, payload); err != nil {
		return "", fmt.Errorf("auth: persist key record: %w", err)
	}
	return tokenPrefix + id + "." + secret, nil
}

// Verify resolves a token back to its principal, or ErrInvalidToken.
func (m *Manager) Verify(ctx context.Context, token string) (access.Principal, error) {
	rest, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", ErrInvalidToken
	}
	id, secret, ok := strings.Cut(rest, ".")
	if !ok || id == "" || secret == "" {
		return "", ErrInvalidToken
	}
	payload, err := m.store.Get(ctx, keyStorePrefix+id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("auth: load key record: %w", err)
	}
	var record keyRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return "", fmt.Errorf("auth: decode key record: %w", err)
	}
	if bcrypt.CompareHashAndPassword(record.Hash, []byte(secret)) != nil {
		return "", ErrInvalidToken
	}
	return access.Principal(record.Principal), nil
}
