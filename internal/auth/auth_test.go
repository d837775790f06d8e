package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"

	"github.com/nulpointcorp/llm-gateway/internal/auth"
)

func requestCtx() *fasthttp.RequestCtx {
	return &fasthttp.RequestCtx{}
}

func TestAuthenticate_NoTokenConfiguredAllowsAll(t *testing.T) {
	a := auth.New("", nil)
	ctx := requestCtx()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("expected no auth configured to allow request, got %v", err)
	}
}

func TestAuthenticate_BearerTokenMatch(t *testing.T) {
	a := auth.New("secret-token", nil)
	ctx := requestCtx()
	ctx.Request.Header.Set("Authorization", "Bearer secret-token")
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("expected matching bearer token to authenticate, got %v", err)
	}
}

func TestAuthenticate_BearerTokenMismatch(t *testing.T) {
	a := auth.New("secret-token", nil)
	ctx := requestCtx()
	ctx.Request.Header.Set("Authorization", "Bearer wrong-token")
	if err := a.Authenticate(ctx); err != auth.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticate_BearerTokenMissing(t *testing.T) {
	a := auth.New("secret-token", nil)
	ctx := requestCtx()
	if err := a.Authenticate(ctx); err != auth.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticate_SessionJWTValid(t *testing.T) {
	a := auth.New("", []byte("jwt-secret"))
	token, err := a.IssueSessionJWT("user-1", nil)
	if err != nil {
		t.Fatalf("IssueSessionJWT: %v", err)
	}
	ctx := requestCtx()
	ctx.Request.Header.SetCookie(auth.SessionCookieName, token)
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("expected valid session jwt to authenticate, got %v", err)
	}
}

func TestAuthenticate_SessionJWTWrongSecret(t *testing.T) {
	issuer := auth.New("", []byte("issuer-secret"))
	token, err := issuer.IssueSessionJWT("user-1", nil)
	if err != nil {
		t.Fatalf("IssueSessionJWT: %v", err)
	}

	verifier := auth.New("", []byte("other-secret"))
	ctx := requestCtx()
	ctx.Request.Header.SetCookie(auth.SessionCookieName, token)
	if err := verifier.Authenticate(ctx); err != auth.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticate_SessionJWTRejectsAlgNone(t *testing.T) {
	a := auth.New("", []byte("jwt-secret"))

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	ctx := requestCtx()
	ctx.Request.Header.SetCookie(auth.SessionCookieName, token)
	if err := a.Authenticate(ctx); err != auth.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated (alg=none must be rejected)", err)
	}
}

func TestAuthenticate_BothModesConfiguredBearerWins(t *testing.T) {
	a := auth.New("secret-token", []byte("jwt-secret"))
	ctx := requestCtx()
	ctx.Request.Header.Set("Authorization", "Bearer secret-token")
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("expected bearer token to authenticate, got %v", err)
	}
}

func TestAuthenticate_BothModesConfiguredSessionCookieFallback(t *testing.T) {
	a := auth.New("secret-token", []byte("jwt-secret"))
	token, err := a.IssueSessionJWT("user-1", nil)
	if err != nil {
		t.Fatalf("IssueSessionJWT: %v", err)
	}
	ctx := requestCtx()
	ctx.Request.Header.SetCookie(auth.SessionCookieName, token)
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("expected session cookie to authenticate when bearer header absent, got %v", err)
	}
}

func TestIssueSessionJWT_NoSecretConfigured(t *testing.T) {
	a := auth.New("secret-token", nil)
	if _, err := a.IssueSessionJWT("user-1", nil); err == nil {
		t.Fatal("expected error issuing session jwt with no secret configured")
	}
}
