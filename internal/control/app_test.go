package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/callcore/internal/core/config"
)

func TestApp_ProbesJournalOutcomes(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/ready" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.HTTP.Name = "api"
	cfg.HTTP.BaseURL = server.URL
	cfg.Probe.Path = "/ready"

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	app.probeOnce(context.Background())

	recs, err := app.Invoker.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "api.probe" || recs[0].Status != "succeeded" {
		t.Errorf("unexpected journal: %+v", recs)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
	if h := app.HTTP.GetHealth(); !h.Available {
		t.Errorf("provider should be available: %+v", h)
	}
}

func TestApp_StartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.HTTP.BaseURL = server.URL
	cfg.Probe.Interval = 10 * time.Millisecond

	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		recs, _ := app.Invoker.Recent(context.Background(), 0, "VALIDATION")
		if len(recs) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("probes did not run, got %d outcomes", len(recs))
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
