package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestParseToken(t *testing.T) {
	tok := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		DisplayName: "Alice",
		Email:       "alice@example.com",
	})

	user, err := ParseToken(testSecret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if user.ID != "u1" || user.DisplayName != "Alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	// чужой секрет
	tok := signToken(t, []byte("other"), Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Fatal("token signed with a different secret must fail")
	}

	// истёкший
	tok = signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Fatal("expired token must fail")
	}

	// без subject
	tok = signToken(t, testSecret, Claims{})
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Fatal("token without subject must fail")
	}
}

func TestAuthMiddleware(t *testing.T) {
	mw := AuthMiddleware(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromCtx(r.Context())
		if user == nil || user.ID != "u1" {
			t.Fatalf("user missing in context: %+v", user)
		}
		w.WriteHeader(http.StatusOK)
	})

	tok := signToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// без токена — 401, до хендлера не доходит
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	rec = httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a token")
	})).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestName_Fallbacks(t *testing.T) {
	if got := (&User{DisplayName: "Alice"}).Name(); got != "Alice" {
		t.Fatalf("display name wins: %q", got)
	}
	if got := (&User{Email: "a@b.c"}).Name(); got != "a@b.c" {
		t.Fatalf("email fallback: %q", got)
	}
	if got := (&User{}).Name(); got != "Anonymous" {
		t.Fatalf("anonymous fallback: %q", got)
	}
}
