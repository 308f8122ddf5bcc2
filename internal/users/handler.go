// Package users provides HTTP handlers and business logic for managing user records.
package users

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bissquit/user-registry/internal/domain"
	"github.com/bissquit/user-registry/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrUsernameExists, Status: http.StatusConflict},
	{Error: ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "store unavailable"},
}

// Handler handles HTTP requests for the users module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new users handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the users module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{username}", h.GetUser)
		r.Put("/{username}", h.UpdateUser)
		r.Delete("/{username}", h.DeleteUser)
	})
}

// CreateUserRequest represents the request body for creating a user.
// Username and password must be present; empty strings are accepted.
type CreateUserRequest struct {
	Username *string  `json:"username" validate:"required"`
	Password *string  `json:"password" validate:"required"`
	Roles    []string `json:"roles"`
	Timezone *string  `json:"timezone"`
	Active   *bool    `json:"active"`
}

// ToInput converts the request to service input.
func (r *CreateUserRequest) ToInput() CreateUserInput {
	return CreateUserInput{
		Username: *r.Username,
		Password: *r.Password,
		Roles:    r.Roles,
		Timezone: r.Timezone,
		Active:   r.Active,
	}
}

// UpdateUserRequest represents the request body for a partial user update.
// A null timezone clears the stored value; null for any other field is ignored.
type UpdateUserRequest struct {
	Password *string               `json:"password"`
	Roles    *[]string             `json:"roles"`
	Timezone domain.NullableString `json:"timezone"`
	Active   *bool                 `json:"active"`
}

// ToPatch converts the request to a domain patch.
func (r *UpdateUserRequest) ToPatch() domain.UserPatch {
	return domain.UserPatch{
		Password: r.Password,
		Roles:    r.Roles,
		Timezone: r.Timezone,
		Active:   r.Active,
	}
}

// DeleteUserResponse is returned after a successful delete.
type DeleteUserResponse struct {
	Message string `json:"message"`
}

// ListUsers handles GET /users request.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, list)
}

// GetUser handles GET /users/{username} request.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.service.GetUser(r.Context(), username)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// CreateUser handles POST /users request.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, user)
}

// UpdateUser handles PUT /users/{username} request.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req UpdateUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	patch := req.ToPatch()
	if patch.IsEmpty() {
		httputil.Error(w, http.StatusBadRequest, "no fields to update")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), username, patch)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{username} request.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := h.service.DeleteUser(r.Context(), username); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteUserResponse{Message: "user deleted"})
}

// decodeBody writes a 400 response and returns false when the body is
// missing or is not valid JSON.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		httputil.Error(w, http.StatusBadRequest, "request body is required")
	default:
		httputil.Error(w, http.StatusBadRequest, "invalid json")
	}
	return false
}
