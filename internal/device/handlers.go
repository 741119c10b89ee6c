package device

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fleetgrid/backend/internal/httputil"
	"github.com/fleetgrid/backend/internal/notifications"
	"github.com/fleetgrid/backend/internal/ws"
)

// DriftChecker compares a device's desired and applied configuration after
// an applied-config report. Implemented by the drift package.
type DriftChecker interface {
	CheckDevice(ctx context.Context, d *Device) error
}

// Handlers provides HTTP handlers for the device fleet API.
type Handlers struct {
	store    *Store
	hub      *ws.Hub
	producer *notifications.EventProducer
	drift    DriftChecker
}

// NewHandlers creates a new Handlers.
func NewHandlers(store *Store, hub *ws.Hub, producer *notifications.EventProducer, drift DriftChecker) *Handlers {
	return &Handlers{store: store, hub: hub, producer: producer, drift: drift}
}

// RegisterRoutes wires the device endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/devices").Subrouter()
	api.HandleFunc("", h.List).Methods("GET")
	api.HandleFunc("", h.Enroll).Methods("POST")
	api.HandleFunc("/{id}", h.Get).Methods("GET")
	api.HandleFunc("/{id}", h.Update).Methods("PUT")
	api.HandleFunc("/{id}", h.Retire).Methods("DELETE")
	api.HandleFunc("/{id}/status", h.ReportStatus).Methods("POST")
	api.HandleFunc("/{id}/desired-config", h.SetDesiredConfig).Methods("PUT")
	api.HandleFunc("/{id}/applied-config", h.ReportAppliedConfig).Methods("POST")
}

// List handles GET /api/devices with query filters and pagination.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	params := ListParams{
		Status: q.Get("status"),
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	}

	devices, total, err := h.store.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"total":   total,
		"limit":   params.Limit,
		"offset":  params.Offset,
	})
}

// Enroll handles POST /api/devices.
func (h *Handlers) Enroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string   `json:"name"`
		Model        string   `json:"model"`
		SerialNumber string   `json:"serial_number"`
		Tags         []string `json:"tags"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.SerialNumber == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name and serial_number are required")
		return
	}

	d := &Device{
		Name:         req.Name,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Tags:         req.Tags,
	}
	if err := h.store.Create(r.Context(), d); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.producer != nil {
		h.producer.PublishDeviceEnrolled(d.ID, d.Name)
	}

	httputil.WriteJSON(w, http.StatusCreated, d)
}

// Get handles GET /api/devices/:id.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// Update handles PUT /api/devices/:id.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Name  string   `json:"name"`
		Model string   `json:"model"`
		Tags  []string `json:"tags"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Model != "" {
		d.Model = req.Model
	}
	if req.Tags != nil {
		d.Tags = req.Tags
	}

	if err := h.store.Update(r.Context(), d); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, d)
}

// Retire handles DELETE /api/devices/:id.
func (h *Handlers) Retire(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.store.Retire(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.producer != nil {
		h.producer.PublishDeviceRetired(d.ID, d.Name)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "retired"})
}

// ReportStatus handles POST /api/devices/:id/status, the device agent
// check-in. Transitions are broadcast to WebSocket subscribers and
// published as notification events.
func (h *Handlers) ReportStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status string `json:"status"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != StatusOnline && req.Status != StatusOffline {
		httputil.WriteError(w, http.StatusBadRequest, "status must be online or offline")
		return
	}

	d, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if d.Status == StatusRetired {
		httputil.WriteError(w, http.StatusConflict, "device is retired")
		return
	}

	previous, err := h.store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if previous != req.Status {
		if h.hub != nil {
			payload, _ := json.Marshal(map[string]string{
				"device_id": id,
				"name":      d.Name,
				"status":    req.Status,
			})
			h.hub.Broadcast(ws.StreamEvent{Topic: "device.status", Type: "status", Payload: payload})
		}
		if h.producer != nil {
			h.producer.PublishDeviceStatus(id, d.Name, req.Status)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// SetDesiredConfig handles PUT /api/devices/:id/desired-config.
func (h *Handlers) SetDesiredConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var config json.RawMessage
	if err := httputil.DecodeJSON(r, &config); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetByID(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.store.SetDesiredConfig(r.Context(), id, config); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReportAppliedConfig handles POST /api/devices/:id/applied-config: the
// device reports the configuration it is actually running, which feeds
// drift detection.
func (h *Handlers) ReportAppliedConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var config json.RawMessage
	if err := httputil.DecodeJSON(r, &config); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetByID(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.store.SetAppliedConfig(r.Context(), id, config); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.drift != nil {
		d, err := h.store.GetByID(r.Context(), id)
		if err == nil {
			if err := h.drift.CheckDevice(r.Context(), d); err != nil {
				log.Printf("device: drift check for %s failed: %v", id, err)
			}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
