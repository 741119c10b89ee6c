package drift

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fleetgrid/backend/internal/httputil"
)

// Handlers provides HTTP handlers for drift reports.
type Handlers struct {
	store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes wires the drift endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/drift-reports", h.List).Methods("GET")
	r.HandleFunc("/api/drift-reports/{id}/resolve", h.Resolve).Methods("POST")
}

// List handles GET /api/drift-reports with query filters and pagination.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var resolved *bool
	if q.Get("resolved") != "" {
		v := q.Get("resolved") == "true"
		resolved = &v
	}

	params := ListParams{
		DeviceID: q.Get("device_id"),
		Resolved: resolved,
		Limit:    limit,
		Offset:   offset,
	}

	reports, total, err := h.store.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   total,
		"limit":   params.Limit,
		"offset":  params.Offset,
	})
}

// Resolve handles POST /api/drift-reports/:id/resolve, the operator's
// manual acknowledgement that a divergence has been dealt with.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Resolve(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
