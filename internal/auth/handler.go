package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/httpx"
	"github.com/prodvault/prodvault/internal/registry"
	"github.com/prodvault/prodvault/internal/shared"
)

// OwnerChecker answers who currently owns the registry. Key minting is
// owner-gated just like role grants.
type OwnerChecker interface {
	Owner(ctx context.Context) (access.Principal, error)
}

// Handler exposes API key administration.
type Handler struct {
	logger   *slog.Logger
	manager  *Manager
	owners   OwnerChecker
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, manager *Manager, owners OwnerChecker) *Handler {
	return &Handler{
		logger:   logger,
		manager:  manager,
		owners:   owners,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes attaches auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/keys", h.IssueKey)
}

type issueKeyRequest struct {
	Principal string `json:"principal" validate:"required"`
}

type issueKeyResponse struct {
	Principal string `json:"principal"`
	Token     string `json:"token"`
}

func (h *Handler) IssueKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	caller := shared.PrincipalFromContext(r.Context())
	owner, err := h.owners.Owner(r.Context())
	if err != nil {
		if errors.Is(err, registry.ErrNotInitialized) {
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
			return
		}
		h.logger.Error("resolve owner", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if caller == "" || caller != owner {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "only the owner may issue api keys")
		return
	}

	token, err := h.manager.Issue(r.Context(), access.Principal(req.Principal))
	if err != nil {
		h.logger.Error("issue api key", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, issueKeyResponse{Principal: req.Principal, Token: token})
}
