//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/practice-audit/internal/engine"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/monitoring"
	"github.com/sells-group/practice-audit/internal/pipeline"
	"github.com/sells-group/practice-audit/internal/store"
)

// storeStarter queues runs in a store without executing them.
type storeStarter struct {
	st       store.Store
	subjects []model.Subject
	err      error
}

func (s *storeStarter) Start(ctx context.Context, subject model.Subject) (*model.Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.subjects = append(s.subjects, subject)
	return s.st.CreateRun(ctx, subject)
}

type testServer struct {
	handler http.Handler
	store   store.Store
	starter *storeStarter
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	reg := prometheus.NewRegistry()
	ts := &testServer{
		store:   st,
		starter: &storeStarter{st: st},
		metrics: monitoring.NewMetrics(reg),
	}
	ts.handler = buildRouter(ts.starter, st, reg, []string{"https://app.example"})
	return ts
}

func (ts *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_CreateAudit(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(model.Subject{Name: "Dr. X", Locality: "City Y", Category: "Ortho", URL: "https://example.com"})
	rr := ts.do(http.MethodPost, "/audits", body)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	require.Len(t, ts.starter.subjects, 1)
	assert.Equal(t, "City Y", ts.starter.subjects[0].Locality)
}

func TestRouter_CreateAudit_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", "{", "invalid request body"},
		{"missing name", `{"locality":"Recife"}`, "name is required"},
		{"invalid url", `{"name":"Dr. X","url":"not a url"}`, "invalid url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/audits", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
	assert.Empty(t, ts.starter.subjects)
}

func TestRouter_CreateAudit_StartFails(t *testing.T) {
	ts := newTestServer(t)
	ts.starter.err = fmt.Errorf("disk full")

	rr := ts.do(http.MethodPost, "/audits", []byte(`{"name":"Dr. X"}`))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk full")
}

func TestRouter_ListAudits(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.store.CreateRun(ctx, model.Subject{Name: "Dra. Conceição"})
	require.NoError(t, err)
	other, err := ts.store.CreateRun(ctx, model.Subject{Name: "Dr. X"})
	require.NoError(t, err)
	require.NoError(t, ts.store.UpdateRunStatus(ctx, other.ID, model.RunStatusAnalyzing))

	t.Run("all", func(t *testing.T) {
		rr := ts.do(http.MethodGet, "/audits", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var runs []model.Run
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
		assert.Len(t, runs, 2)
	})

	t.Run("by subject name", func(t *testing.T) {
		rr := ts.do(http.MethodGet, "/audits?subject=Dra.%20Concei%C3%A7%C3%A3o", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var runs []model.Run
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "Dra. Conceição", runs[0].Subject.Name)
	})

	t.Run("by status", func(t *testing.T) {
		rr := ts.do(http.MethodGet, "/audits?status=analyzing", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var runs []model.Run
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, other.ID, runs[0].ID)
	})

	t.Run("empty is an array", func(t *testing.T) {
		rr := ts.do(http.MethodGet, "/audits?status=failed", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("bad limit", func(t *testing.T) {
		rr := ts.do(http.MethodGet, "/audits?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRouter_GetAudit(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	run, err := ts.store.CreateRun(ctx, model.Subject{Name: "Dr. X"})
	require.NoError(t, err)
	phase, err := ts.store.CreatePhase(ctx, run.ID, "technical_triage")
	require.NoError(t, err)
	require.NoError(t, ts.store.CompletePhase(ctx, phase.ID, &model.PhaseResult{
		Name:       "technical_triage",
		Status:     model.PhaseStatusComplete,
		DurationMs: 1200,
	}))

	rr := ts.do(http.MethodGet, "/audits/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		ID     string           `json:"id"`
		Phases []model.RunPhase `json:"phases"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	require.Len(t, got.Phases, 1)
	assert.Equal(t, model.PhaseStatusComplete, got.Phases[0].Status)
	assert.Equal(t, int64(1200), got.Phases[0].Result.DurationMs)

	rr = ts.do(http.MethodGet, "/audits/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "audit not found")
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.metrics.AuditStarted()

	rr := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "practice_audit_audits_started_total 1")
}

func TestRouter_CORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/audits", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
	assert.Equal(t, 0, resolvePort(0, 0))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, ts.handler, port)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// slowEngine answers every phase after a fixed delay.
type slowEngine struct {
	delay time.Duration
}

func (e slowEngine) RunPhase(_ context.Context, req engine.Request) (*engine.Result, error) {
	time.Sleep(e.delay)
	text := `{"text": "Paciente estável.", "severity": "medium"}`
	switch req.Phase {
	case pipeline.PhaseSalesPitch:
		text = `{"headline": "Tratamento urgente", "symptoms": ["a", "b", "c"], "prognosis": "bom", "treatmentPlan": ["Cirurgia de SEO"]}`
	case pipeline.PhaseCampaign:
		text = "Campaign,Ad Group\nOrto,Joelho"
	}
	return &engine.Result{Text: text, Model: "claude-test"}, nil
}

type emptyCollector struct{}

func (emptyCollector) Collect(context.Context, model.Subject) model.CollectionContext {
	return model.CollectionContext{}
}

func TestDrainRuns_WaitsForInFlightAudit(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	p := pipeline.New(emptyCollector{}, slowEngine{delay: 40 * time.Millisecond}, pipeline.WithStore(st))
	handler := buildRouter(p, st, prometheus.NewRegistry(), nil)

	body, _ := json.Marshal(model.Subject{Name: "Dr. X", URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/audits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))

	drainRuns(ctx, p, 5*time.Second)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)

	phases, err := st.ListPhases(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, phases, 5)
	require.NoError(t, st.Close())
}

type stuckDrainer struct{}

func (stuckDrainer) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDrainRuns_GivesUpAfterTimeout(t *testing.T) {
	start := time.Now()
	drainRuns(context.Background(), stuckDrainer{}, 20*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}
