package ledger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
)

func newMux(t *testing.T) (*http.ServeMux, ledger.System) {
	t.Helper()
	ctx := context.Background()
	sys := newSystem(t, ledger.NewMemoryStore(ledger.MatchFold), nil)
	sys.Load(ctx, sentences(5))

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	return mux, sys
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRegisterAndWrite(t *testing.T) {
	mux, sys := newMux(t)

	rec := do(mux, "POST", "/ledger/sources", `{"name":"Fabio"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body)
	}
	var src ledger.Source
	json.NewDecoder(rec.Body).Decode(&src)
	if src.Name != "Fabio" || src.Kind != ledger.Human {
		t.Errorf("source = %+v", src)
	}

	rec = do(mux, "PUT", "/ledger/labels", `{"sentence_id":1,"source":"fabio","value":2}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("write status = %d: %s", rec.Code, rec.Body)
	}
	rec = do(mux, "PUT", "/ledger/labels", `{"sentence_id":2,"source":"Fabio","value":"none"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failure write status = %d: %s", rec.Code, rec.Body)
	}

	labels, _ := sys.Read(context.Background(), "Fabio")
	if diff := cmp.Diff(map[int]ledger.Value{1: 2, 2: ledger.Failure}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	rec = do(mux, "GET", "/ledger/sources/Fabio/unlabeled?page_size=2", "")
	var page pagination.PageResult[int]
	json.NewDecoder(rec.Body).Decode(&page)
	if diff := cmp.Diff([]int{3, 4}, page.Data); diff != "" || page.Total != 3 {
		t.Errorf("unlabeled page = %+v (%s)", page, diff)
	}

	rec = do(mux, "GET", "/ledger/sources/Fabio/failed", "")
	var failed []int
	json.NewDecoder(rec.Body).Decode(&failed)
	if diff := cmp.Diff([]int{2}, failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerErrors(t *testing.T) {
	mux, _ := newMux(t)
	do(mux, "POST", "/ledger/sources", `{"name":"Fabio"}`)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"reserved name", "POST", "/ledger/sources", `{"name":"sentence"}`, http.StatusBadRequest},
		{"bad kind", "POST", "/ledger/sources", `{"name":"x","kind":"robot"}`, http.StatusBadRequest},
		{"malformed body", "PUT", "/ledger/labels", `{`, http.StatusBadRequest},
		{"invalid value", "PUT", "/ledger/labels", `{"sentence_id":1,"source":"Fabio","value":9}`, http.StatusBadRequest},
		{"unseen source", "PUT", "/ledger/labels", `{"sentence_id":1,"source":"Monica","value":1}`, http.StatusNoContent},
		{"unknown sentence", "PUT", "/ledger/labels", `{"sentence_id":77,"source":"Fabio","value":1}`, http.StatusNotFound},
		{"unknown labels", "GET", "/ledger/sources/Giulia/labels", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandlerExport(t *testing.T) {
	mux, sys := newMux(t)
	ctx := context.Background()
	sys.RegisterSource(ctx, "Fabio", ledger.Human)
	sys.Write(ctx, 3, "Fabio", 5)

	rec := do(mux, "GET", "/ledger/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != ledger.XLSXContentType {
		t.Errorf("content type = %q", ct)
	}

	snap, err := ledger.ReadWorkbook(rec.Body)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if v := snap.Labels["Fabio"][3]; v != 5 {
		t.Errorf("exported value = %v, want 5", v)
	}
}
