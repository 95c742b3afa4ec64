// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crewhq/gateway/internal/gateway"
	"github.com/crewhq/gateway/internal/platform/apperr"
	"github.com/crewhq/gateway/internal/platform/ctxutil"
	"github.com/crewhq/gateway/internal/platform/respond"
	"github.com/crewhq/gateway/internal/platform/validate"
)

// ProxyHandler forwards the dashboard's GraphQL documents to the upstream
// through the executor, so every data operation inherits the transparent
// refresh-and-retry behavior and cookie persistence.
type ProxyHandler struct {
	gateway *gateway.Client
}

// NewProxyHandler constructs a [ProxyHandler] over the shared executor.
func NewProxyHandler(client *gateway.Client) *ProxyHandler {
	return &ProxyHandler{gateway: client}
}

// proxyRequest is the inbound document shape, mirroring the standard
// GraphQL-over-HTTP POST body.
type proxyRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

/*
Forward executes the posted document upstream on behalf of the session holder.

POST /api/v1/graphql

The route sits behind RequireSession, so an unresolvable token never reaches
the upstream. The executor may still observe a mid-request expiry; a failed
refresh surfaces as SESSION_EXPIRED and the middleware's cookie store has
already been cleared by the executor.

Response:
  - 200: {"data": <upstream data block>}
  - 401: SESSION_EXPIRED after an unrecoverable token expiry
  - 422: Upstream rejected the document (messages surfaced verbatim)
  - 502: Upstream unreachable or returned an unusable payload
*/
func (handler *ProxyHandler) Forward(writer http.ResponseWriter, request *http.Request) {
	var input proxyRequest

	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Query == "" {
		respond.Error(writer, request, apperr.ValidationError("A query document is required",
			apperr.FieldError{Field: "query", Message: "must not be empty"}))
		return
	}

	creds := ctxutil.GetCredentials(request.Context())
	if creds == nil {
		respond.Error(writer, request, apperr.Internal(nil))
		return
	}

	data, err := handler.gateway.Call(request.Context(), creds, input.Query, input.Variables)
	if err != nil {
		respond.Error(writer, request, mapUpstreamError(err))
		return
	}

	respond.Raw(writer, data)
}

// mapUpstreamError translates an executor failure into the client-facing
// error taxonomy.
func mapUpstreamError(err error) error {
	var requestErr *gateway.RequestError
	if !errors.As(err, &requestErr) {
		return apperr.Internal(err)
	}

	switch {
	case requestErr.Unauthenticated():
		// The executor already exhausted its one refresh attempt and cleared
		// the credential cookies.
		return apperr.SessionExpired()

	case len(requestErr.Errors) > 0:
		// A business-level rejection (validation, not-found, conflict). The
		// upstream's messages are the ones the dashboard should display.
		return apperr.Unprocessable(requestErr.Error())

	case errors.Is(err, gateway.ErrEmptyResponse):
		return apperr.BadGateway("Upstream returned an empty response", err)

	default:
		return apperr.BadGateway("Unable to reach the upstream service", err)
	}
}
