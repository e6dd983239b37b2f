package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/avvvet/kpi-services/internal/kpisvc/service"
	"github.com/avvvet/kpi-services/internal/kpisvc/ws"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth  *jwtauth.JWTAuth
	cards      *service.KpiCardService
	prefs      *service.PreferenceService
	hub        *ws.Hub
	port       string
	instanceId string
}

// NewHandler wires the services into the HTTP layer. hub may be nil.
func NewHandler(cards *service.KpiCardService, prefs *service.PreferenceService, hub *ws.Hub) *Handler {
	return &Handler{
		cards: cards,
		prefs: prefs,
		hub:   hub,
	}
}

func (h *Handler) SetInstance(port, instanceId string) {
	h.port = port
	h.instanceId = instanceId
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// HandleError maps service errors to status codes. Unknown errors are
// logged and answered with the generic fallback message.
func (h *Handler) HandleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.CreateResponse(w, http.StatusNotFound, ErrorResponse{Error: "KPI card not found."})
	case errors.Is(err, service.ErrInsufficientData):
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Insufficient data for yield calculation."})
	case errors.Is(err, service.ErrMissingField), errors.Is(err, service.ErrInvalidField):
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		log.Errorf("%s %s", fallback, err)
		h.CreateResponse(w, http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %s", err)})
		return false
	}
	return true
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	dashboards := 0
	if h.hub != nil {
		dashboards = h.hub.Count()
	}
	rsp := Response{
		Message: "kpi service is running at port " + h.port,
		Code:    http.StatusOK,
		Data: map[string]interface{}{
			"instance":   h.instanceId,
			"dashboards": dashboards,
		},
	}
	h.CreateResponse(w, http.StatusOK, rsp)
}
