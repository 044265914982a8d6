package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyz_ReportsFailingCheck(t *testing.T) {
	mux := NewBaseMuxWithReady(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "connection refused") {
		t.Fatalf("expected failing check in body, got %s", rw.Body.String())
	}
}

func TestReadyz_AllHealthy(t *testing.T) {
	mux := NewBaseMuxWithReady(ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }})

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	rwHealth := httptest.NewRecorder()
	mux.ServeHTTP(rwHealth, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rwHealth.Code != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", rwHealth.Code)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Fatalf("expected debug level")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Fatalf("expected info fallback")
	}
}

func TestShutdownContext_DefaultsWhenZero(t *testing.T) {
	ctx, cancel := ShutdownContext(0)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected a deadline")
	}
}
