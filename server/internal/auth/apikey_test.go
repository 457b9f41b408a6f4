package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// okHandler answers every request with 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok")) //nolint:errcheck
})

func callWithKey(t *testing.T, mw func(http.Handler) http.Handler, method, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/upload-data", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rr, req)
	return rr
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	mw := APIKey("none", "X-API-Key", "secret")
	// No key on the request; passes because mode != "apikey".
	rr := callWithKey(t, mw, http.MethodPost, "X-API-Key", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 200 ok", rr.Code, rr.Body.String())
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	// key="" means auth is not configured.
	mw := APIKey("apikey", "X-API-Key", "")
	rr := callWithKey(t, mw, http.MethodPost, "X-API-Key", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_CorrectKey_Passes(t *testing.T) {
	mw := APIKey("apikey", "X-API-Key", "supersecret")
	rr := callWithKey(t, mw, http.MethodPost, "X-API-Key", "supersecret")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_Rejects(t *testing.T) {
	mw := APIKey("apikey", "X-API-Key", "supersecret")
	cases := []struct {
		name    string
		key     string
		wantMsg string
	}{
		{"wrong key", "wrong", "invalid api key"},
		{"missing header", "", "missing api key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := callWithKey(t, mw, http.MethodPost, "X-API-Key", tc.key)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.wantMsg) {
				t.Errorf("body: got %q, want %q", rr.Body.String(), tc.wantMsg)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
		})
	}
}

func TestAPIKey_Preflight_PassesThrough(t *testing.T) {
	mw := APIKey("apikey", "X-API-Key", "supersecret")
	rr := callWithKey(t, mw, http.MethodOptions, "X-API-Key", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_CustomHeader(t *testing.T) {
	mw := APIKey("apikey", "X-Trialdash-Token", "mytoken")
	if rr := callWithKey(t, mw, http.MethodPost, "X-Trialdash-Token", "mytoken"); rr.Code != http.StatusOK {
		t.Errorf("custom header: got %d, want 200", rr.Code)
	}
	if rr := callWithKey(t, mw, http.MethodPost, "X-API-Key", "mytoken"); rr.Code != http.StatusUnauthorized {
		t.Errorf("default header with custom configured: got %d, want 401", rr.Code)
	}
}
