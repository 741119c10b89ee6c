package backup

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fleetgrid/backend/internal/httputil"
)

type Handlers struct {
	store  *Store
	worker *Worker
}

func NewHandlers(store *Store, worker *Worker) *Handlers {
	return &Handlers{store: store, worker: worker}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/backups", h.Trigger).Methods("POST")
	r.HandleFunc("/api/backups", h.List).Methods("GET")
	r.HandleFunc("/api/backups/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/backups/{id}/download", h.Download).Methods("GET")
}

func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	b, err := h.store.Create(r.Context(), req.DeviceID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}

	if err := h.worker.Enqueue(b.ID, req.DeviceID); err != nil {
		if errors.Is(err, ErrQueueFull) {
			httputil.WriteError(w, http.StatusServiceUnavailable, "backup queue is full, try again later")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to schedule backup")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, b)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		DeviceID: r.URL.Query().Get("device_id"),
		Status:   r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		params.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		params.Offset, _ = strconv.Atoi(v)
	}

	backups, total, err := h.store.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"total":   total,
	})
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load backup")
		return
	}
	if b == nil {
		httputil.WriteError(w, http.StatusNotFound, "backup not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load backup")
		return
	}
	if b == nil {
		httputil.WriteError(w, http.StatusNotFound, "backup not found")
		return
	}
	if b.Status != StatusCompleted || b.FilePath == "" {
		httputil.WriteError(w, http.StatusConflict, "backup is not completed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+b.ID+`.json"`)
	http.ServeFile(w, r, b.FilePath)
}
