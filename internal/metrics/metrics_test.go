package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// scrape fetches the handler output and parses it back into families.
func scrape(t *testing.T, r *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rec.Body)
	if err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	return mfs
}

func counterWith(mf *dto.MetricFamily, labels map[string]string) float64 {
	for _, m := range mf.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
				match = false
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

func TestHandler_Empty(t *testing.T) {
	mfs := scrape(t, New())

	if got := mfs["nemfeed_pipeline_duration_seconds"].GetMetric()[0].GetSummary().GetSampleCount(); got != 0 {
		t.Errorf("duration count = %d, want 0", got)
	}
	if got := mfs["nemfeed_last_success_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("last success = %v, want 0", got)
	}
	if _, ok := mfs["nemfeed_pipeline_runs_total"]; ok {
		t.Errorf("runs family present before any run")
	}
}

func TestHandler_Counts(t *testing.T) {
	r := New()
	r.ObserveRun(OutcomeSuccess, 2*time.Second, 48)
	r.ObserveRun(OutcomeNoData, time.Second, 0)
	r.ObserveRun(OutcomeSuccess, time.Second, 50)
	r.ObserveUpstream(StageListing, "ok")
	r.ObserveUpstream(StageListing, "ok")
	r.ObserveUpstream(StageArchive, "timeout")

	mfs := scrape(t, r)

	runs := mfs["nemfeed_pipeline_runs_total"]
	if got := counterWith(runs, map[string]string{"outcome": OutcomeSuccess}); got != 2 {
		t.Errorf("success runs = %v, want 2", got)
	}
	if got := counterWith(runs, map[string]string{"outcome": OutcomeNoData}); got != 1 {
		t.Errorf("no_data runs = %v, want 1", got)
	}

	upstream := mfs["nemfeed_upstream_requests_total"]
	if got := counterWith(upstream, map[string]string{"stage": StageListing, "result": "ok"}); got != 2 {
		t.Errorf("listing ok = %v, want 2", got)
	}
	if got := counterWith(upstream, map[string]string{"stage": StageArchive, "result": "timeout"}); got != 1 {
		t.Errorf("archive timeout = %v, want 1", got)
	}

	summary := mfs["nemfeed_pipeline_duration_seconds"].GetMetric()[0].GetSummary()
	if summary.GetSampleCount() != 3 || summary.GetSampleSum() != 4 {
		t.Errorf("duration = count %d sum %v, want count 3 sum 4", summary.GetSampleCount(), summary.GetSampleSum())
	}

	if got := mfs["nemfeed_last_rows"].GetMetric()[0].GetGauge().GetValue(); got != 50 {
		t.Errorf("last rows = %v, want 50", got)
	}
	if got := mfs["nemfeed_last_success_timestamp_seconds"].GetMetric()[0].GetGauge().GetValue(); got <= 0 {
		t.Errorf("last success = %v, want > 0", got)
	}
}

func TestRuns(t *testing.T) {
	r := New()
	r.ObserveRun(OutcomeTimeout, time.Millisecond, 0)

	if got := r.Runs(OutcomeTimeout); got != 1 {
		t.Errorf("Runs(timeout) = %d, want 1", got)
	}
	if got := r.Runs(OutcomeSuccess); got != 0 {
		t.Errorf("Runs(success) = %d, want 0", got)
	}
}
