package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"asset-catalog/internal/filesystem"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	err   error
	calls int
}

func (m *mockStatsProvider) GetStats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats, m.err
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestPublish(t *testing.T) {
	Publish(Stats{Sources: 3, Pending: 7, Retrying: 2, Exhausted: 1, Succeeded: 40, Skipped: 5})

	tests := []struct {
		state string
		want  float64
	}{
		{"pending", 7},
		{"retrying", 2},
		{"exhausted", 1},
		{"succeeded", 40},
		{"skipped", 5},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := gaugeValue(t, CatalogAssetsTotal.WithLabelValues(tt.state)); got != tt.want {
				t.Errorf("CatalogAssetsTotal{%s} = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
	if got := gaugeValue(t, CatalogSourcesTotal); got != 3 {
		t.Errorf("CatalogSourcesTotal = %v, want 3", got)
	}
}

func TestCollectorCollectsImmediately(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{Sources: 1, Assets: 9, Pending: 9}}
	c := NewCollector(provider, time.Hour)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() == 0 {
		t.Fatal("collector did not collect on start")
	}
	if got := gaugeValue(t, CatalogAssetsTotal.WithLabelValues("pending")); got != 9 {
		t.Errorf("pending gauge = %v, want 9", got)
	}
}

func TestCollectorToleratesErrors(t *testing.T) {
	provider := &mockStatsProvider{err: errors.New("database is locked")}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected repeated collection attempts, got %d", provider.callCount())
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Millisecond)
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
}

func TestRouter(t *testing.T) {
	BackfillLeaseContention.Inc()
	r := NewRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "asset_catalog_backfill_lease_contention_total"},
		{name: "wrong method", method: http.MethodPost, path: "/healthz", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q", tt.wantBody)
			}
		})
	}
}

func TestServe(t *testing.T) {
	srv, err := Serve("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Errorf("GET /healthz = %d %q", resp.StatusCode, body)
	}
}

func TestServeAppliesWrappers(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	srv, err := Serve("127.0.0.1:0", tag("outer"), tag("inner"))
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("wrapper order = %v", order)
	}
}

func TestServeInvalidAddress(t *testing.T) {
	if _, err := Serve("256.0.0.1:99999"); err == nil {
		t.Error("Serve() expected error for invalid address")
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	before := counterValue(t, FilesystemRetryAttempts.WithLabelValues("stat", "scratch"))
	obs.ObserveRetry("stat", "scratch", filesystem.RetryAttempt, 0)
	after := counterValue(t, FilesystemRetryAttempts.WithLabelValues("stat", "scratch"))
	if after != before+1 {
		t.Errorf("retry attempts = %v, want %v", after, before+1)
	}

	errsBefore := counterValue(t, FilesystemOperationErrors.WithLabelValues("source", "open"))
	obs.ObserveOperation("source", "open", 0.01, errors.New("boom"))
	obs.ObserveOperation("source", "open", 0.01, nil)
	errsAfter := counterValue(t, FilesystemOperationErrors.WithLabelValues("source", "open"))
	if errsAfter != errsBefore+1 {
		t.Errorf("operation errors = %v, want %v", errsAfter, errsBefore+1)
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()
	SetAppInfo("v1.0.0", "abc123", "go1.25")
	if got := gaugeValue(t, AppInfo.WithLabelValues("v1.0.0", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}
