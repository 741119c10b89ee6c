package audit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestItoa(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0"},
		{7, "7"},
		{38, "38"},
		{500, "500"},
		{4096, "4096"},
	}
	for _, tt := range tests {
		if got := itoa(tt.input); got != tt.expected {
			t.Errorf("itoa(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestListParamsZeroValue(t *testing.T) {
	params := ListParams{}
	if params.Limit != 0 || params.Offset != 0 {
		t.Errorf("expected zero paging defaults, got limit=%d offset=%d", params.Limit, params.Offset)
	}
	if params.DeviceID != "" {
		t.Errorf("expected no device filter by default, got %q", params.DeviceID)
	}
}

// Reads and failed writes never reach the store, so a store with no pool is
// safe here: an attempted insert would panic the test.
func TestMiddlewareSkipsReadsAndFailedWrites(t *testing.T) {
	mw := Middleware(NewStore(nil))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	get := httptest.NewRequest("GET", "/api/devices", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, get)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for read, got %d", w.Code)
	}

	failedWrite := httptest.NewRequest("POST", "/api/devices", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, failedWrite)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 passed through, got %d", w.Code)
	}
}

func TestStatusRecorderCapturesCode(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusConflict)
	if rec.status != http.StatusConflict {
		t.Errorf("expected captured 409, got %d", rec.status)
	}
}
