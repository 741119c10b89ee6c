package plugin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetgrid/backend/internal/httputil"
	"github.com/fleetgrid/backend/internal/schemaform"
)

type Handlers struct {
	engine *Engine
}

func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/plugins").Subrouter()
	api.HandleFunc("", h.handleList).Methods("GET")
	api.HandleFunc("/enabled", h.handleListEnabled).Methods("GET")
	api.HandleFunc("/{id}/enable", h.handleEnable).Methods("POST")
	api.HandleFunc("/{id}/disable", h.handleDisable).Methods("POST")
	api.HandleFunc("/{id}/config-form", h.handleConfigForm).Methods("GET")
	api.HandleFunc("/{id}/config", h.handleSaveConfig).Methods("PUT")
	api.HandleFunc("/{id}/config/test", h.handleTestConfig).Methods("POST")
}

func (h *Handlers) handleList(w http.ResponseWriter, r *http.Request) {
	plugins := h.engine.ListAll()
	if plugins == nil {
		plugins = []PluginInfo{}
	}
	httputil.WriteJSON(w, http.StatusOK, plugins)
}

func (h *Handlers) handleListEnabled(w http.ResponseWriter, r *http.Request) {
	manifests := h.engine.ListEnabled(r.Context())
	if manifests == nil {
		manifests = []Manifest{}
	}
	httputil.WriteJSON(w, http.StatusOK, manifests)
}

func (h *Handlers) handleEnable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.engine.Enable(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *Handlers) handleDisable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.engine.Disable(r.Context(), id); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// handleConfigForm returns everything the settings form needs in one
// round-trip: the schema document, the current value (stored config or
// synthesized defaults), example templates, and the current validation
// state.
func (h *Handlers) handleConfigForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	m, err := h.engine.GetManifest(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ctrl := h.engine.OpenForm(r.Context(), id)
	if ctrl.State() == schemaform.StateLoadError {
		httputil.WriteError(w, http.StatusInternalServerError, ctrl.LoadError().Error())
		return
	}

	schema, _ := h.engine.Schema(id)
	examples := schema.Examples
	if examples == nil {
		examples = []schemaform.Value{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"plugin_id": id,
		"schema":    json.RawMessage(m.ConfigSchema),
		"value":     ctrl.Value(),
		"examples":  examples,
		"errors":    ctrl.Errors(),
		"valid":     ctrl.IsValid(),
	})
}

// handleSaveConfig validates and persists a plugin configuration. Invalid
// configurations are rejected with 422 and the ordered validation messages.
func (h *Handlers) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var value schemaform.Value
	if err := httputil.DecodeJSON(r, &value); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctrl := h.engine.OpenForm(r.Context(), id)
	if ctrl.State() == schemaform.StateLoadError {
		httputil.WriteError(w, http.StatusNotFound, ctrl.LoadError().Error())
		return
	}

	ctrl.ApplyTemplate(value)

	err := ctrl.Save(r.Context(), h.engine)
	if errors.Is(err, schemaform.ErrInvalid) {
		httputil.WriteValidationErrors(w, ctrl.Errors())
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "saved",
		"value":  ctrl.Value(),
	})
}

// handleTestConfig runs the plugin's connectivity test against a candidate
// configuration without persisting it.
func (h *Handlers) handleTestConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var value schemaform.Value
	if err := httputil.DecodeJSON(r, &value); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctrl := h.engine.OpenForm(r.Context(), id)
	if ctrl.State() == schemaform.StateLoadError {
		httputil.WriteError(w, http.StatusNotFound, ctrl.LoadError().Error())
		return
	}

	ctrl.ApplyTemplate(value)

	result, err := ctrl.Test(r.Context(), h.engine)
	if errors.Is(err, schemaform.ErrInvalid) {
		httputil.WriteValidationErrors(w, ctrl.Errors())
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
