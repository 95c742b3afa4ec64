// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CodeUnauthenticated is the upstream extension code marking a response as
// unauthenticated, independent of the transport status.
const CodeUnauthenticated = "UNAUTHENTICATED"

// ErrEmptyResponse marks a call that succeeded at the transport level but
// returned no usable payload.
var ErrEmptyResponse = errors.New("gateway: upstream returned an empty response")

// ErrorExtensions carries the machine-readable part of an upstream error.
type ErrorExtensions struct {
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// UpstreamError is a single structured error from the upstream error list.
type UpstreamError struct {
	Message    string          `json:"message"`
	Extensions ErrorExtensions `json:"extensions,omitempty"`
}

// RequestError is the terminal failure of an upstream exchange. It carries
// the HTTP-like status and any structured error list.
type RequestError struct {
	// Status is the transport status code, or 0 for network-level failures.
	Status int

	// Errors is the structured error list, possibly empty.
	Errors []UpstreamError

	cause error
}

// Error joins all structured error messages into one human-readable string.
func (e *RequestError) Error() string {
	if len(e.Errors) > 0 {
		messages := make([]string, 0, len(e.Errors))
		for _, upstreamErr := range e.Errors {
			messages = append(messages, upstreamErr.Message)
		}
		return strings.Join(messages, "; ")
	}

	if e.cause != nil {
		return fmt.Sprintf("gateway: upstream request failed: %v", e.cause)
	}

	return fmt.Sprintf("gateway: upstream request failed with status %d", e.Status)
}

// Unwrap allows [errors.Is] to match sentinel causes such as [ErrEmptyResponse].
func (e *RequestError) Unwrap() error { return e.cause }

// Unauthenticated reports whether this failure was classified as an
// expired/invalid token response: transport 401, or any structured error
// carrying the UNAUTHENTICATED code.
func (e *RequestError) Unauthenticated() bool {
	return unauthenticated(e.Status, e.Errors)
}

// unauthenticated classifies a response by status and structured error list.
func unauthenticated(status int, upstreamErrors []UpstreamError) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	for _, upstreamErr := range upstreamErrors {
		if upstreamErr.Extensions.Code == CodeUnauthenticated {
			return true
		}
	}
	return false
}
