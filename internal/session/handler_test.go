package session_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/session"
)

func setupMux(h *session.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, session.View) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var v session.View
	if rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec, v
}

func TestHandlerLifecycle(t *testing.T) {
	mux := setupMux(session.New(newLedger(t, 2), session.DefaultSeed, discard).Handler())

	rec, v := do(t, mux, "POST", "/sessions", `{"annotator":"Fabio"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	base := "/sessions/" + v.Status.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"current", "GET", base, "", http.StatusOK},
		{"back at start", "POST", base + "/back", "", http.StatusConflict},
		{"invalid class", "POST", base + "/submit", `{"value":9}`, http.StatusBadRequest},
		{"submit", "POST", base + "/submit", `{"value":3}`, http.StatusOK},
		{"submit text value", "POST", base + "/submit", `{"value":"2"}`, http.StatusOK},
		{"queue exhausted", "POST", base + "/submit", `{"value":1}`, http.StatusConflict},
		{"back", "POST", base + "/back", "", http.StatusOK},
		{"end", "DELETE", base, "", http.StatusOK},
		{"after end", "GET", base, "", http.StatusNotFound},
		{"unknown", "GET", "/sessions/" + uuid.NewString(), "", http.StatusNotFound},
		{"bad id", "GET", "/sessions/nope", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, mux, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandlerStartRejectsBadBody(t *testing.T) {
	mux := setupMux(session.New(newLedger(t, 1), session.DefaultSeed, discard).Handler())

	for _, body := range []string{`{`, `{"annotator":"id"}`} {
		rec, _ := do(t, mux, "POST", "/sessions", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}
