package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/metrics"
	"github.com/JaimeStill/concord/internal/workflow"
	"github.com/JaimeStill/concord/pkg/middleware"
)

var (
	_ middleware.Observer = (*metrics.Recorder)(nil)
	_ ledger.Observer     = (*metrics.Recorder)(nil)
	_ workflow.Observer   = (*metrics.Recorder)(nil)
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(body)
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := metrics.New(reg)

	r.ObserveRequest("GET", "GET /api/ledger/sources", 200, 5*time.Millisecond)
	r.LabelWritten("Fabio", 3)
	r.LabelWritten("Fabio", 3)
	r.LabelWritten("mod4_gpt-4o", ledger.Failure)
	r.SourceRegistered(ledger.Human, true)
	r.Classified("gpt-4o", workflow.OutcomeClassified, 300*time.Millisecond)
	r.Classified("gpt-4o", workflow.OutcomeError, time.Second)

	body := scrape(t, reg)

	for _, want := range []string{
		`concord_http_requests_total{method="GET",pattern="GET /api/ledger/sources",status="200"} 1`,
		`concord_labels_written_total{source="Fabio",value="3"} 2`,
		`concord_labels_written_total{source="mod4_gpt-4o",value="none"} 1`,
		`concord_source_registrations_total{created="true",kind="human"} 1`,
		`concord_classifications_total{model="gpt-4o",outcome="classified"} 1`,
		`concord_classifications_total{model="gpt-4o",outcome="error"} 1`,
		`concord_classification_duration_seconds_count{model="gpt-4o"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %s", want)
		}
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	metrics.New(reg)
}
