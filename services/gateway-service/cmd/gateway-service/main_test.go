package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookable-app/bookable/libs/auth"
)

func TestRequireRole(t *testing.T) {
	h := requireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "owner", "team")

	cases := []struct {
		role string
		want int
	}{
		{"owner", http.StatusOK},
		{"team", http.StatusOK},
		{"customer", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/business/profile", nil)
		if tc.role != "" {
			req.Header.Set("X-Role", tc.role)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %q: got %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}

func TestRequireAuthHS256(t *testing.T) {
	const secret = "test-secret"
	claims := auth.Claims{
		Sub:        "user-1",
		BusinessID: "biz-1",
		Role:       "owner",
		Iat:        time.Now().Unix(),
		Exp:        time.Now().Add(time.Hour).Unix(),
	}
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256: %v", err)
	}

	var forwarded http.Header
	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}), secret)

	t.Run("valid token forwards identity headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rec.Code)
		}
		if got := forwarded.Get("X-User-Id"); got != claims.Sub {
			t.Errorf("X-User-Id = %q, want %q", got, claims.Sub)
		}
		if got := forwarded.Get("X-Business-Id"); got != claims.BusinessID {
			t.Errorf("X-Business-Id = %q, want %q", got, claims.BusinessID)
		}
		if got := forwarded.Get("X-Role"); got != claims.Role {
			t.Errorf("X-Role = %q, want %q", got, claims.Role)
		}
	})

	t.Run("client-supplied identity headers are stripped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Role", "admin")
		req.Header.Set("X-Business-Id", "someone-else")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rec.Code)
		}
		if got := forwarded.Get("X-Role"); got != claims.Role {
			t.Errorf("X-Role = %q, want %q", got, claims.Role)
		}
		if got := forwarded.Get("X-Business-Id"); got != claims.BusinessID {
			t.Errorf("X-Business-Id = %q, want %q", got, claims.BusinessID)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/bookings", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})
}
