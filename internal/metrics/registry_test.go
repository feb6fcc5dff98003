package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestInitDefault(t *testing.T) {
	m := InitDefault()
	if m == nil {
		t.Fatal("expected metrics, got nil")
	}

	if m != Default {
		t.Error("expected returned metrics to be same as Default")
	}

	if m2 := InitDefault(); m2 != m {
		t.Error("expected same instance on second call")
	}
	if GetDefault() != m {
		t.Error("expected GetDefault to return Default instance")
	}
}

func TestNewRegistry(t *testing.T) {
	reg, m := NewRegistry()

	m.PollRequests.WithLabelValues("true").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "taleyport_poll_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("metrics not registered with custom registry")
	}
}

func TestHandlerFor(t *testing.T) {
	reg, m := NewRegistry()
	m.BackendRequests.WithLabelValues("list_stories", "200").Inc()

	handler := HandlerFor(reg, promhttp.HandlerOpts{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "taleyport_backend_requests_total") {
		t.Error("metrics output does not contain backend_requests_total")
	}
}

func TestServe(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveTerminal("completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Serve(ctx, "127.0.0.1:0", HandlerFor(reg, promhttp.HandlerOpts{}))
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `taleyport_tasks_terminal_total{status="completed"} 1`) {
		t.Errorf("unexpected metrics body: %s", body)
	}
}

func TestMultipleRegistries(t *testing.T) {
	reg1, m1 := NewRegistry()
	reg2, _ := NewRegistry()

	m1.CommandExecutions.WithLabelValues("video", "true").Inc()

	f1, _ := reg1.Gather()
	f2, _ := reg2.Gather()

	if len(f1) == 0 {
		t.Error("expected metrics in first registry")
	}
	for _, mf := range f2 {
		if mf.GetName() == "taleyport_command_executions_total" {
			t.Error("second registry should not see first registry's samples")
		}
	}
}
