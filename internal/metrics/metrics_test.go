package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPasswordEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.PasswordEvent("confirm_reset", "success")
	c.PasswordEvent("confirm_reset", "success")
	c.PasswordEvent("confirm_reset", "token_expired")

	if got := counterValue(t, c.passwordEvents.WithLabelValues("confirm_reset", "success")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := counterValue(t, c.passwordEvents.WithLabelValues("confirm_reset", "token_expired")); got != 1 {
		t.Fatalf("expired count = %v, want 1", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/api/packs", http.StatusOK, 20*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(body), `packshop_http_requests_total{method="GET",route="/api/packs",status_code="200"} 1`) {
		t.Fatalf("missing request counter in:\n%s", body)
	}
}
