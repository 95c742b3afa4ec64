// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewhq/gateway/internal/loginlimit"
	"github.com/crewhq/gateway/internal/platform/apperr"
	"github.com/crewhq/gateway/internal/platform/ctxutil"
	"github.com/crewhq/gateway/internal/platform/respond"
	"github.com/crewhq/gateway/internal/platform/validate"
)

// # JSON Field Identifiers

const (
	fieldEmail     = "email"
	fieldPassword  = "password"
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
)

// Handler implements authentication-related HTTP endpoints.
//
// This layer is strictly responsible for transport concerns (status codes,
// cookies via the context credential store, JSON). All decisions live in
// [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /login    : Authenticates and sets credential cookies.
//   - POST /register : Creates a new account and sets credential cookies.
//   - POST /logout   : Clears credentials (best-effort upstream logout).
//   - GET  /me       : Echoes the resolved session.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/register", handler.register)
	router.Post("/logout", handler.logout)
	router.Get("/me", handler.me)

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Response:
  - 200: UserProfile; credential cookies set
  - 401: Upstream rejection, message surfaced verbatim
  - 429: Origin locked out, retry-after in the message
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := decodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(fieldEmail, input.Email).
		Email(fieldEmail, input.Email).
		Required(fieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	creds := ctxutil.GetCredentials(request.Context())
	if creds == nil {
		respond.Error(writer, request, apperr.Internal(nil))
		return
	}

	user, err := handler.authService.Login(request.Context(), creds, LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		ClientKey: loginlimit.ClientKey(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Register creates a new account and establishes a session.

POST /api/v1/auth/register

Response:
  - 201: UserProfile; credential cookies set
  - 422: Upstream rejection, message surfaced verbatim
  - 429: Origin locked out
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := decodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(fieldEmail, input.Email).
		Email(fieldEmail, input.Email).
		Required(fieldPassword, input.Password).
		MinLen(fieldPassword, input.Password, 8).
		MaxLen(fieldFirstName, input.FirstName, 100).
		MaxLen(fieldLastName, input.LastName, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	creds := ctxutil.GetCredentials(request.Context())
	if creds == nil {
		respond.Error(writer, request, apperr.Internal(nil))
		return
	}

	user, err := handler.authService.Register(request.Context(), creds, RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		ClientKey: loginlimit.ClientKey(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Always succeeds: the upstream call is best-effort and local credential
clearing happens regardless.

Response:
  - 204: No Content
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	creds := ctxutil.GetCredentials(request.Context())
	if creds != nil {
		handler.authService.Logout(request.Context(), creds)
	}

	respond.NoContent(writer)
}

/*
Me echoes the resolved session for dashboard bootstrapping.

GET /api/v1/auth/me

Response:
  - 200: Session (identity, account, roles, permissions)
  - 401: SESSION_EXPIRED when no session resolves
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	resolved := ctxutil.GetSession(request.Context())
	if resolved == nil {
		respond.Error(writer, request, apperr.SessionExpired())
		return
	}

	respond.OK(writer, resolved)
}

// decodeJSON reads the request body into target.
func decodeJSON(request *http.Request, target interface{}) error {
	return json.NewDecoder(request.Body).Decode(target)
}
