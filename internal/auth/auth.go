// Package auth implements §4.B stage 1: accepting either a static bearer
// token, a signed session JWT cookie, or (when no token is configured) any
// request. Grounded on BaSui01-agentflow's cmd/agentflow/middleware.go
// JWTAuth — the only example repo doing JWT session auth for an
// LLM-adjacent service — adapted from net/http to the teacher's fasthttp
// style.
package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

// ErrUnauthenticated is returned by Authenticate on failure; the caller
// (pipeline stage 1) maps it to HTTP 401.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// SessionCookieName is the cookie carrying the signed session JWT.
const SessionCookieName = "gateway_session"

// Authenticator validates one request per §4.B stage 1.
type Authenticator struct {
	// BearerToken, if non-empty, is the single static secret accepted on
	// the Authorization: Bearer header.
	BearerToken string
	// JWTSecret, if non-empty, signs/validates SessionCookieName (HS256).
	JWTSecret []byte
}

// New builds an Authenticator. Both bearerToken and jwtSecret may be empty
// — in that configuration Authenticate always succeeds (teacher's
// "no token configured ⇒ allow" mode).
func New(bearerToken string, jwtSecret []byte) *Authenticator {
	return &Authenticator{BearerToken: bearerToken, JWTSecret: jwtSecret}
}

// Authenticate checks ctx's Authorization header and session cookie against
// the configured mode. Returns nil when the request is allowed through.
func (a *Authenticator) Authenticate(ctx *fasthttp.RequestCtx) error {
	if a.BearerToken == "" && len(a.JWTSecret) == 0 {
		return nil
	}

	if a.BearerToken != "" {
		if token, ok := bearerToken(ctx); ok && token == a.BearerToken {
			return nil
		}
	}

	if len(a.JWTSecret) > 0 {
		if raw := ctx.Request.Header.Cookie(SessionCookieName); len(raw) > 0 {
			if err := a.validateSessionJWT(string(raw)); err == nil {
				return nil
			}
		}
	}

	return ErrUnauthenticated
}

func (a *Authenticator) validateSessionJWT(raw string) error {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: unexpected signing method")
		}
		return a.JWTSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return ErrUnauthenticated
	}
	return nil
}

// IssueSessionJWT signs a session cookie value for subject, carrying any
// extra claims (including an "exp" expiry, if the caller sets one). Used by a login endpoint this gateway's management routes may
// expose; kept here so signing and validation share one secret handling
// path.
func (a *Authenticator) IssueSessionJWT(subject string, claims jwt.MapClaims) (string, error) {
	if len(a.JWTSecret) == 0 {
		return "", errors.New("auth: no jwt secret configured")
	}
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["sub"] = subject
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.JWTSecret)
}

func bearerToken(ctx *fasthttp.RequestCtx) (string, bool) {
	h := string(ctx.Request.Header.Peek("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}
