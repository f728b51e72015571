package discrepancy_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/internal/corpus"
	"github.com/JaimeStill/concord/internal/discrepancy"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/pkg/routes"
)

func snapshot() *ledger.Snapshot {
	return &ledger.Snapshot{
		Records: []corpus.Record{
			{ID: 1, Text: "È una donna libera."},
			{ID: 2, Text: "Una donna libera, non è sposata."},
			{ID: 3, Text: "Fa tanto la donna libera."},
			{ID: 4, Text: "Dopo il carcere è una donna libera."},
			{ID: 5, Text: "Donna libera e franca."},
		},
		Sources: []ledger.Source{{Name: "Fabio"}, {Name: "gpt-4o"}, {Name: "gpt-4_1"}},
		Labels: map[string]map[int]ledger.Value{
			"Fabio":   {1: 1, 2: 2, 3: 4, 4: 6},
			"gpt-4o":  {1: 1, 2: 1, 3: ledger.Failure, 5: 5},
			"gpt-4_1": {1: 3, 2: 2, 4: 6},
		},
	}
}

func ids(seq []discrepancy.Discrepancy) []int {
	out := make([]int, len(seq))
	for i, d := range seq {
		out[i] = d.SentenceID
	}
	return out
}

func collect(snap *ledger.Snapshot, sources []string, restrict []int) []discrepancy.Discrepancy {
	var out []discrepancy.Discrepancy
	for d := range discrepancy.Find(snap, sources, restrict) {
		out = append(out, d)
	}
	return out
}

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		sources  []string
		restrict []int
		want     []int
	}{
		// 3: failure vs 4 is not a disagreement. 5: one value only.
		{"human vs model", []string{"Fabio", "gpt-4o"}, nil, []int{2}},
		{"three sources", []string{"Fabio", "gpt-4o", "gpt-4_1"}, nil, []int{1, 2}},
		{"restricted", []string{"Fabio", "gpt-4o", "gpt-4_1"}, []int{2, 3}, []int{2}},
		{"agreeing pair", []string{"Fabio", "gpt-4_1"}, []int{4}, []int{}},
		{"empty restriction", []string{"Fabio", "gpt-4o", "gpt-4_1"}, []int{}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(collect(snapshot(), tt.sources, tt.restrict))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindIsRestartable(t *testing.T) {
	seq := discrepancy.Find(snapshot(), []string{"Fabio", "gpt-4o", "gpt-4_1"}, nil)

	var first, second []int
	for d := range seq {
		first = append(first, d.SentenceID)
		break
	}
	for d := range seq {
		second = append(second, d.SentenceID)
	}

	if diff := cmp.Diff([]int{1}, first); diff != "" {
		t.Errorf("early stop mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, second); diff != "" {
		t.Errorf("second pass mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	n, err := discrepancy.Write(&buf, discrepancy.Find(snapshot(), []string{"Fabio", "gpt-4o", "gpt-4_1"}, []int{2, 4}))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	want := "ID 2\n" +
		"Una donna libera, non è sposata.\n" +
		"  Fabio → 2\n" +
		"  gpt-4o → 1\n" +
		"  gpt-4_1 → 2\n" +
		discrepancy.Rule + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(discrepancy.Rule) != 60 {
		t.Errorf("rule length = %d", len(discrepancy.Rule))
	}
}

func TestWriteMarksMissingAndFailure(t *testing.T) {
	snap := snapshot()
	snap.Labels["gpt-4o"][4] = ledger.Failure
	snap.Labels["Fabio"][5] = 2

	var buf bytes.Buffer
	discrepancy.Write(&buf, discrepancy.Find(snap, []string{"Fabio", "gpt-4o", "gpt-4_1"}, []int{5}))

	out := buf.String()
	if !strings.Contains(out, "  gpt-4_1 → -\n") {
		t.Errorf("missing entry not shown as '-':\n%s", out)
	}

	buf.Reset()
	discrepancy.Write(&buf, discrepancy.Find(snap, []string{"Fabio", "gpt-4o"}, []int{4}))
	if buf.Len() != 0 {
		t.Errorf("failure sentinel created a discrepancy:\n%s", buf.String())
	}
}

type mockLedger struct{}

func (mockLedger) Snapshot(context.Context) (*ledger.Snapshot, error) {
	return snapshot(), nil
}

func TestHandler(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, discrepancy.NewHandler(mockLedger{}, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/discrepancies?sources=fabio,GPT-4O", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "ID 2\n") {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/discrepancies?sources=Fabio", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("single source status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/discrepancies?sources=Fabio,nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown source status = %d", rec.Code)
	}
}
