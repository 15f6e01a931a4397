package registry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/httpx"
	"github.com/prodvault/prodvault/internal/shared"
)

type grantOp func(ctx context.Context, caller, principal access.Principal) error

func principal(value string) access.Principal {
	return access.Principal(value)
}

// Handler exposes the registry operations over HTTP. The calling principal
// is taken from the request context, where the auth middleware put it.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	printer  *message.Printer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		printer:  message.NewPrinter(language.English),
	}
}

// MountRoutes attaches registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/registry/initialize", h.Initialize)
	r.Get("/registry/owner", h.Owner)
	r.Post("/registry/owner/transfer", h.TransferOwner)
	r.Post("/registry/roles/set-product", h.GrantSetRole)
	r.Post("/registry/roles/delete-product", h.GrantDeleteRole)
	r.Put("/items/{key}", h.SetItem)
	r.Get("/items/{key}", h.GetItem)
	r.Delete("/items/{key}", h.DeleteItem)
}

func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	caller := shared.PrincipalFromContext(r.Context())
	if err := h.service.Initialize(r.Context(), caller); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ownerResponse{Owner: string(caller)})
}

func (h *Handler) Owner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.service.Owner(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ownerResponse{Owner: string(owner)})
}

func (h *Handler) TransferOwner(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.PrincipalFromContext(r.Context())
	if err := h.service.TransferOwner(r.Context(), caller, principal(req.NewOwner)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ownerResponse{Owner: req.NewOwner})
}

func (h *Handler) GrantSetRole(w http.ResponseWriter, r *http.Request) {
	h.grant(w, r, h.service.GrantSetRole)
}

func (h *Handler) GrantDeleteRole(w http.ResponseWriter, r *http.Request) {
	h.grant(w, r, h.service.GrantDeleteRole)
}

func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	var req setItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	item, err := req.toItem()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	key := chi.URLParam(r, "key")
	caller := shared.PrincipalFromContext(r.Context())
	if err := h.service.SetItem(r.Context(), caller, key, item); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(h.printer, key, item))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	item, err := h.service.GetItem(r.Context(), key)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(h.printer, key, item))
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	caller := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteItem(r.Context(), caller, key); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request, op grantOp) {
	var req grantRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.PrincipalFromContext(r.Context())
	if err := op(r.Context(), caller, principal(req.Principal)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var authzErr *AuthorizationError
	switch {
	case errors.As(err, &authzErr):
		httpx.ProblemCode(w, http.StatusUnauthorized, "Unauthorized", authzErr.Error(), authzErr.Code())
	case errors.Is(err, ErrNoPrincipal):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrNotOwner):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrAlreadyInitialized), errors.Is(err, ErrNotInitialized):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNegativePrice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("registry handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
