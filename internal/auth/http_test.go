// ABOUTME: Tests for the bearer-token HTTP middleware
// ABOUTME: Covers header parsing and subject propagation into the context

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header    string
		wantToken string
		wantErr   bool
	}{
		{"Bearer abc123", "abc123", false},
		{"", "", true},
		{"Basic abc123", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		token, errMsg := extractBearerToken(tc.header)
		if (errMsg != "") != tc.wantErr {
			t.Errorf("extractBearerToken(%q) errMsg = %q, wantErr %v", tc.header, errMsg, tc.wantErr)
		}
		if token != tc.wantToken {
			t.Errorf("extractBearerToken(%q) token = %q, want %q", tc.header, token, tc.wantToken)
		}
	}
}

func TestMiddleware(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	token, err := v.Generate("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var gotSubject string
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/envelopes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSubject != "user-1" {
		t.Errorf("subject = %q, want user-1", gotSubject)
	}
}

func TestMiddleware_RejectsBadTokens(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without valid auth")
	}))

	cases := []string{"", "Bearer garbage", "Basic abc"}
	for _, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/envelopes", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}
