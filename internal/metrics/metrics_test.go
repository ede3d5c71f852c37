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

// counterValue はラベルが一致するカウンタの値を返す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRecordToggle_SeparatesDirection(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordToggle("post", "like", true)
	c.RecordToggle("post", "like", true)
	c.RecordToggle("post", "like", false)
	c.RecordToggle("user", "follow", true)

	tests := []struct {
		labels map[string]string
		want   float64
	}{
		{map[string]string{"kind": "post", "relation": "like", "direction": "add"}, 2},
		{map[string]string{"kind": "post", "relation": "like", "direction": "remove"}, 1},
		{map[string]string{"kind": "user", "relation": "follow", "direction": "add"}, 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, reg, "codersmeet_toggles_total", tt.labels); got != tt.want {
			t.Errorf("toggles%v = %v, want %v", tt.labels, got, tt.want)
		}
	}
}

func TestRecordAuthAttemptAndUploads(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthAttempt("password", true)
	c.RecordAuthAttempt("password", false)
	c.RecordAuthAttempt("google", false)
	c.RecordImageUpload(false)
	c.RecordContentCreated("blog")

	if got := counterValue(t, reg, "codersmeet_auth_attempts_total", map[string]string{"method": "password", "result": "failure"}); got != 1 {
		t.Errorf("password failures = %v, want 1", got)
	}
	if got := counterValue(t, reg, "codersmeet_auth_attempts_total", map[string]string{"method": "google", "result": "failure"}); got != 1 {
		t.Errorf("google failures = %v, want 1", got)
	}
	if got := counterValue(t, reg, "codersmeet_image_uploads_total", map[string]string{"result": "failure"}); got != 1 {
		t.Errorf("upload failures = %v, want 1", got)
	}
	if got := counterValue(t, reg, "codersmeet_content_created_total", map[string]string{"kind": "blog"}); got != 1 {
		t.Errorf("blogs created = %v, want 1", got)
	}
}

func TestRecordHTTPStatus_ByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordRequestLatency(150 * time.Millisecond)

	if got := counterValue(t, reg, "codersmeet_http_status_total", map[string]string{"status_code": "200"}); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := counterValue(t, reg, "codersmeet_http_status_total", map[string]string{"status_code": "404"}); got != 1 {
		t.Errorf("404 count = %v, want 1", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordContentCreated("post")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "codersmeet_content_created_total") {
		t.Error("response should contain codersmeet_content_created_total")
	}
}
