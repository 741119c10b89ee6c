package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	NewHandlers(NewStore(nil)).RegisterRoutes(r)
	return r
}

func TestIngest_RejectsEmptyBody(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("POST", "/api/devices/dev-1/metrics", strings.NewReader(`{"points":[]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestIngest_RejectsUnnamedPoint(t *testing.T) {
	r := newTestRouter()

	body := `{"points":[{"name":"cpu_percent","value":41.5},{"value":3}]}`
	req := httptest.NewRequest("POST", "/api/devices/dev-1/metrics", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSeries_RequiresName(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/devices/dev-1/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSeries_RejectsBadTimestamps(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest("GET", "/api/devices/dev-1/metrics?name=cpu_percent&from=yesterday", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
