package status

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carson-networks/up-bridge/internal/logging"
)

// readiness reports whether the mandatory first refresh has completed.
type readiness interface {
	Ready() bool
}

type Handler struct {
	Coordinator readiness
}

func NewHandler(coordinator readiness) Handler {
	return Handler{Coordinator: coordinator}
}

type statusBody struct {
	Ready bool `json:"ready"`
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != "GET" {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	ready := h.Coordinator == nil || h.Coordinator.Ready()
	logData.AddData("ready", ready)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(statusBody{Ready: ready})
}
