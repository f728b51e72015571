package agreement_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/concord/internal/agreement"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/routes"
)

type mockLedger struct {
	snapshotFn func(ctx context.Context) (*ledger.Snapshot, error)
}

func (m *mockLedger) Snapshot(ctx context.Context) (*ledger.Snapshot, error) {
	return m.snapshotFn(ctx)
}

func newMux(t *testing.T, l agreement.Snapshotter) *http.ServeMux {
	t.Helper()
	tax, err := taxonomy.Builtin("libera")
	if err != nil {
		t.Fatalf("taxonomy: %v", err)
	}
	mux := http.NewServeMux()
	h := agreement.NewHandler(l, tax, slog.New(slog.NewTextHandler(io.Discard, nil)))
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerCompare(t *testing.T) {
	mux := newMux(t, &mockLedger{snapshotFn: func(context.Context) (*ledger.Snapshot, error) {
		return snapshot(), nil
	}})

	req := httptest.NewRequest("GET", "/agreement?ref=Fabio&pred=Giulia&confidence=0.95&one_sided=true", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var res agreement.Result
	json.NewDecoder(rec.Body).Decode(&res)
	if res.N != 3 || !approx(res.Interval.Z, 1.644854) {
		t.Errorf("result = %+v", res)
	}
	if len(res.PerClass) != 6 {
		t.Errorf("per-class rows = %d, want every libera class", len(res.PerClass))
	}
}

func TestHandlerStatuses(t *testing.T) {
	tests := []struct {
		name   string
		target string
		snapFn func(context.Context) (*ledger.Snapshot, error)
		want   int
	}{
		{"insufficient data", "/agreement?ref=Giulia&pred=mod4_gpt-4o&ids=5", nil, http.StatusUnprocessableEntity},
		{"unknown source", "/agreement?ref=Fabio&pred=nobody", nil, http.StatusNotFound},
		{"bad confidence", "/agreement?ref=Fabio&pred=Giulia&confidence=2", nil, http.StatusBadRequest},
		{"bad ids", "/agreement?ref=Fabio&pred=Giulia&ids=uno", nil, http.StatusBadRequest},
		{"too few sources", "/agreement/multiway?sources=Fabio", nil, http.StatusBadRequest},
		{"confusion", "/agreement/confusion?ref=Fabio&pred=Giulia", nil, http.StatusOK},
		{"pairwise", "/agreement/pairwise?sources=Fabio,Giulia,mod4_gpt-4o", nil, http.StatusOK},
		{
			"ledger failure", "/agreement?ref=Fabio&pred=Giulia",
			func(context.Context) (*ledger.Snapshot, error) { return nil, errors.New("disk on fire") },
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := tt.snapFn
			if fn == nil {
				fn = func(context.Context) (*ledger.Snapshot, error) { return snapshot(), nil }
			}
			mux := newMux(t, &mockLedger{snapshotFn: fn})

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.target, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}
