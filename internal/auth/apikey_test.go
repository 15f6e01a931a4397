package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/kv"
	"github.com/prodvault/prodvault/internal/shared"
)

func TestIssueAndVerify(t *testing.T) {
	manager := NewManager(kv.NewMemoryStore(), bcrypt.MinCost)
	ctx := context.Background()

	token, err := manager.Issue(ctx, "Paul")
	require.NoError(t, err)
	require.Contains(t, token, "pv_")

	principal, err := manager.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, access.Principal("Paul"), principal)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	manager := NewManager(kv.NewMemoryStore(), bcrypt.MinCost)
	ctx := context.Background()

	token, err := manager.Issue(ctx, "Paul")
	require.NoError(t, err)

	for _, bad := range []string{
		"",
		"garbage",
		"pv_",
		"pv_missing-dot",
		"pv_unknown-id.secret",
		token + "tampered",
	} {
		_, err := manager.Verify(ctx, bad)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q must be rejected", bad)
	}
}

func TestIssueRequiresPrincipal(t *testing.T) {
	manager := NewManager(kv.NewMemoryStore(), bcrypt.MinCost)

	_, err := manager.Issue(context.Background(), "")
	require.Error(t, err)
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shared.PrincipalFromContext(r.Context())))
	})
}

func TestMiddlewareBearerToken(t *testing.T) {
	store := kv.NewMemoryStore()
	manager := NewManager(store, bcrypt.MinCost)
	token, err := manager.Issue(context.Background(), "Paul")
	require.NoError(t, err)

	mw := Middleware{Manager: manager}
	srv := httptest.NewServer(mw.Resolve(echoPrincipal()))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	require.Equal(t, "Paul", string(body[:n]))
}

func TestMiddlewareRejectsInvalidBearer(t *testing.T) {
	mw := Middleware{Manager: NewManager(kv.NewMemoryStore(), bcrypt.MinCost)}
	srv := httptest.NewServer(mw.Resolve(echoPrincipal()))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer pv_bogus.key")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareTrustHeader(t *testing.T) {
	manager := NewManager(kv.NewMemoryStore(), bcrypt.MinCost)

	for _, tc := range []struct {
		trust bool
		want  string
	}{
		{trust: true, want: "Paul"},
		{trust: false, want: ""},
	} {
		mw := Middleware{Manager: manager, TrustHeader: tc.trust}
		srv := httptest.NewServer(mw.Resolve(echoPrincipal()))

		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		req.Header.Set("X-Principal", "Paul")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := make([]byte, 16)
		n, _ := resp.Body.Read(body)
		require.Equal(t, tc.want, string(body[:n]))
		_ = resp.Body.Close()
		srv.Close()
	}
}
