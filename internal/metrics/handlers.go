package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetgrid/backend/internal/httputil"
)

type Handlers struct {
	store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/devices/{id}/metrics", h.Ingest).Methods("POST")
	r.HandleFunc("/api/devices/{id}/metrics", h.Series).Methods("GET")
	r.HandleFunc("/api/devices/{id}/metrics/latest", h.Latest).Methods("GET")
}

func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var req struct {
		Points []Point `json:"points"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Points) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "points is required")
		return
	}
	for _, p := range req.Points {
		if p.Name == "" {
			httputil.WriteError(w, http.StatusBadRequest, "every point needs a name")
			return
		}
	}

	if err := h.store.Ingest(r.Context(), deviceID, req.Points); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store metrics")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]int{"accepted": len(req.Points)})
}

func (h *Handlers) Series(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	name := r.URL.Query().Get("name")
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		to = t
	}

	series, err := h.store.Series(r.Context(), deviceID, name, from, to)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"name":      name,
		"from":      from,
		"to":        to,
		"series":    series,
	})
}

func (h *Handlers) Latest(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	points, err := h.store.Latest(r.Context(), deviceID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, points)
}
