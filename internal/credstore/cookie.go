// Copyright (c) 2026 CrewHQ. All rights reserved.
// Author: platform@crewhq.app

package credstore

import (
	"net/http"
	"time"

	"github.com/crewhq/gateway/internal/platform/constants"
)

// CookieStore is the production [Store]: credentials live in HttpOnly cookies
// on the caller's browser, scoped to one inbound request/response exchange.
//
// # Read-your-writes
//
// Set-Cookie only affects the *next* request, so the store keeps an in-struct
// view of the pair. A refresh performed mid-request is immediately visible to
// the retried upstream call within the same request.
type CookieStore struct {
	writer  http.ResponseWriter
	request *http.Request
	secure  bool

	// loaded caches the cookie view after the first read or any write.
	loaded bool
	pair   TokenPair
}

// NewCookieStore creates a [Store] over the inbound exchange.
//
// secure controls the cookie Secure attribute; it is disabled only in
// development where the dashboard is served over plain HTTP.
func NewCookieStore(writer http.ResponseWriter, request *http.Request, secure bool) *CookieStore {
	return &CookieStore{writer: writer, request: request, secure: secure}
}

// AccessToken returns the caller's current access token, or "".
func (s *CookieStore) AccessToken() string {
	s.load()
	return s.pair.AccessToken
}

// RefreshToken returns the caller's current refresh token, or "".
func (s *CookieStore) RefreshToken() string {
	s.load()
	return s.pair.RefreshToken
}

// SetTokens persists the pair as two cookies.
//
// The access cookie expires with the token; the refresh cookie lives
// [constants.RefreshTokenTTLMultiplier] times longer, matching the upstream
// token policy. Both are HttpOnly so dashboard scripts can never read them.
func (s *CookieStore) SetTokens(pair TokenPair) {
	accessTTL := pair.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = constants.DefaultAccessTokenTTL
	}

	s.setCookie(constants.AccessTokenCookieName, pair.AccessToken, accessTTL)
	s.setCookie(constants.RefreshTokenCookieName, pair.RefreshToken, accessTTL*constants.RefreshTokenTTLMultiplier)

	s.loaded = true
	s.pair = pair
}

// Clear expires both credential cookies.
func (s *CookieStore) Clear() {
	s.expireCookie(constants.AccessTokenCookieName)
	s.expireCookie(constants.RefreshTokenCookieName)

	s.loaded = true
	s.pair = TokenPair{}
}

// load populates the in-struct view from the request cookies once.
func (s *CookieStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	if cookie, err := s.request.Cookie(constants.AccessTokenCookieName); err == nil {
		s.pair.AccessToken = cookie.Value
	}
	if cookie, err := s.request.Cookie(constants.RefreshTokenCookieName); err == nil {
		s.pair.RefreshToken = cookie.Value
	}
}

func (s *CookieStore) setCookie(name, value string, ttl time.Duration) {
	http.SetCookie(s.writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *CookieStore) expireCookie(name string) {
	http.SetCookie(s.writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
