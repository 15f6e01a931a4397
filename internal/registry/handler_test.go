package registry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/httpx"
	"github.com/prodvault/prodvault/internal/platform/kv"
	"github.com/prodvault/prodvault/internal/shared"
)

// headerPrincipal mimics the auth middleware using a bare header, which is
// how trusted-host deployments resolve the caller.
func headerPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.ContextWithPrincipal(r.Context(), access.Principal(r.Header.Get("X-Principal")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := kv.NewMemoryStore()
	svc := NewService(store, access.New(store), nil, slog.Default())
	handler := NewHandler(slog.Default(), svc)

	router := chi.NewRouter()
	router.Use(headerPrincipal)
	handler.MountRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, principal, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if principal != "" {
		req.Header.Set("X-Principal", principal)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestHandlerInitialize(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var owner ownerResponse
	decodeBody(t, resp, &owner)
	require.Equal(t, "Paul", owner.Owner)

	resp = doRequest(t, srv, http.MethodPost, "/registry/initialize", "Eve", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/registry/owner", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &owner)
	require.Equal(t, "Paul", owner.Owner)
}

func TestHandlerInitializeWithoutPrincipal(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/registry/initialize", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerSetGetDelete(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPut, "/items/0x1", "Paul", `{"name":"PS4 x","price":"800","stock":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/items/0x1", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got itemResponse
	decodeBody(t, resp, &got)
	require.Equal(t, "PS4 x", got.Name)
	require.Equal(t, "800", got.Price)
	require.Equal(t, uint8(100), got.Stock)

	resp = doRequest(t, srv, http.MethodDelete, "/items/0x1", "Paul", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/items/0x1", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerPriceDisplayGroupsDigits(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPut, "/items/0x2", "Paul", `{"name":"PS5","price":"12345","stock":12}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got itemResponse
	decodeBody(t, resp, &got)
	require.Equal(t, "12,345", got.PriceDisplay)
}

func TestHandlerUnauthorizedSetCarries401Code(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPut, "/items/0x1", "Eve", `{"name":"PS5","price":"500","stock":12}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem httpx.ProblemDetail
	decodeBody(t, resp, &problem)
	require.Equal(t, "401", problem.Code)

	resp = doRequest(t, srv, http.MethodGet, "/items/0x1", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "store must be unchanged")
}

func TestHandlerGrantFlow(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPost, "/registry/roles/set-product", "Eve", `{"principal":"Eve"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/registry/roles/set-product", "Paul", `{"principal":"Eve"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/items/k", "Eve", `{"name":"x","price":"1","stock":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerTransferOwner(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPost, "/registry/owner/transfer", "Eve", `{"new_owner":"Eve"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/registry/owner/transfer", "Paul", `{"new_owner":"Mary"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/registry/owner", "", "")
	var owner ownerResponse
	decodeBody(t, resp, &owner)
	require.Equal(t, "Mary", owner.Owner)
}

func TestHandlerRejectsBadPayloads(t *testing.T) {
	srv := newTestServer(t)
	doRequest(t, srv, http.MethodPost, "/registry/initialize", "Paul", "")

	resp := doRequest(t, srv, http.MethodPut, "/items/k", "Paul", `{"name":"x","price":"-5","stock":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/items/k", "Paul", `{"name":"x","price":"1","stock":300}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/items/k", "Paul", `{"name":"x","price":"abc","stock":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/registry/roles/set-product", "Paul", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
