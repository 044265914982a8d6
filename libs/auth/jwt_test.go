package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := Claims{
		Sub:  "user-1",
		Role: "owner",
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(1 * time.Hour).Unix(),
	}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256RejectsExpired(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Role: "owner", Exp: time.Now().Add(-time.Minute).Unix()}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRequireRole(t *testing.T) {
	secret := "test-secret"
	h := RequireRole(secret, "owner", "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Sub != "user-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rwMissing := httptest.NewRecorder()
	h.ServeHTTP(rwMissing, httptest.NewRequest(http.MethodPost, "http://example.com", nil))
	if rwMissing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwMissing.Code)
	}

	member, _ := SignHS256(Claims{Sub: "user-1", Role: "member"}, secret)
	reqMember := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	reqMember.Header.Set("Authorization", "Bearer "+member)
	rwMember := httptest.NewRecorder()
	h.ServeHTTP(rwMember, reqMember)
	if rwMember.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rwMember.Code)
	}

	owner, _ := SignHS256(Claims{Sub: "user-1", Role: "owner"}, secret)
	reqOwner := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	reqOwner.Header.Set("Authorization", "Bearer "+owner)
	rwOwner := httptest.NewRecorder()
	h.ServeHTTP(rwOwner, reqOwner)
	if rwOwner.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwOwner.Code)
	}
}

func TestHS256RejectsForeignAlgorithm(t *testing.T) {
	secret := "s"
	body := b64.EncodeToString([]byte(`{"sub":"user-1","role":"owner"}`))
	head := b64.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	token := head + "." + body + "." + sign(head+"."+body, secret)
	if _, err := ParseAndVerifyHS256(token, secret); err == nil {
		t.Fatal("expected non-HS256 header to be rejected")
	}
	if _, err := SignHS256(Claims{Sub: "user-1"}, ""); err == nil {
		t.Fatal("expected empty secret to be refused")
	}
}
