package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docstore/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestRecordFileStored(t *testing.T) {
	m := metrics.New()
	m.RecordFileStored("offloaded")
	m.RecordFileStored("offloaded")

	body := scrape(t, m)
	if !strings.Contains(body, `docstore_files_stored_total{location="offloaded"} 2`) {
		t.Errorf("expected offloaded counter of 2 in output:\n%s", body)
	}
}

func TestRecordFileSkipped(t *testing.T) {
	m := metrics.New()
	m.RecordFileSkipped("permission")

	body := scrape(t, m)
	if !strings.Contains(body, `docstore_files_skipped_total{reason="permission"} 1`) {
		t.Error("expected permission skip counter in output")
	}
}

func TestRecordOffloadBatch(t *testing.T) {
	m := metrics.New()
	m.RecordOffloadBatch("success", 7, 0.25)

	body := scrape(t, m)
	if !strings.Contains(body, `docstore_offload_batches_total{outcome="success"} 1`) {
		t.Error("expected success batch counter in output")
	}
	if !strings.Contains(body, "docstore_offloaded_files_total 7") {
		t.Error("expected offloaded files total of 7 in output")
	}
	if !strings.Contains(body, "docstore_offload_batch_duration_seconds") {
		t.Error("expected offload batch duration histogram in output")
	}
}

func TestRecordIngestAndGauge(t *testing.T) {
	m := metrics.New()
	m.RecordIngest("success", 1.5)
	m.SetFilesByLocation("inline", 12)

	body := scrape(t, m)
	if !strings.Contains(body, `docstore_ingest_runs_total{outcome="success"} 1`) {
		t.Error("expected ingest run counter in output")
	}
	if !strings.Contains(body, `docstore_files{location="inline"} 12`) {
		t.Error("expected inline gauge of 12 in output")
	}
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.RecordIngest("success", 0.2)
	m.RecordFileSkipped("permission")

	path := filepath.Join(t.TempDir(), "docstore.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `docstore_ingest_runs_total{outcome="success"} 1`) {
		t.Errorf("expected ingest run counter in textfile:\n%s", body)
	}
	if !strings.Contains(body, `docstore_files_skipped_total{reason="permission"} 1`) {
		t.Errorf("expected skip counter in textfile:\n%s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RecordFileStored("inline")
	m.RecordFileSkipped("permission")
	m.RecordIngest("failure", 1)
	m.RecordOffloadBatch("failure", 0, 1)
	m.SetFilesByLocation("inline", 1)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil write textfile: %v", err)
	}
}
