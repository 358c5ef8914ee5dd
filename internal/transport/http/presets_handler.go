package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"fe-quiz-runner/internal/app"
	"fe-quiz-runner/internal/domain"
	"github.com/gorilla/mux"
)

// maxImportBytes bounds preset import bodies.
const maxImportBytes = 1 << 20

// PresetsHandler exposes user preset export/import/delete for instructors
// preparing locked sessions outside the quiz UI. It is an instructor-only
// surface: import may overwrite a preset that a kiosk tab forces. Deleting a
// preset while a locked run for it holds a live lease is refused.
type PresetsHandler struct {
	store    app.Storage
	presets  *app.PresetService
	leaseTTL time.Duration
}

func NewPresetsHandler(store app.Storage, leaseTTL time.Duration) *PresetsHandler {
	return &PresetsHandler{
		store:    store,
		presets:  app.NewPresetService(store),
		leaseTTL: leaseTTL,
	}
}

func (h *PresetsHandler) Export(w http.ResponseWriter, r *http.Request) {
	text, err := h.presets.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(text))
}

func (h *PresetsHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := h.presets.Import(r.Context(), string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, importedPayload{Imported: n})
}

func (h *PresetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name != "" && app.NewRunLease(h.store, name, h.leaseTTL).Held(r.Context()) {
		writeError(w, http.StatusConflict, domain.ErrPresetInUse)
		return
	}
	err := h.presets.DeletePreset(r.Context(), name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrPresetNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

// NewRouter wires the WebSocket endpoint, preset IO and health check.
func NewRouter(ws *WSHandler, presets *PresetsHandler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ws", ws.ServeWS)
	router.HandleFunc("/presets", presets.Export).Methods(http.MethodGet)
	router.HandleFunc("/presets/import", presets.Import).Methods(http.MethodPost)
	router.HandleFunc("/presets/{name}", presets.Delete).Methods(http.MethodDelete)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Message: err.Error()})
}
