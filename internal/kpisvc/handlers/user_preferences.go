package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/avvvet/kpi-services/internal/kpisvc/service"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) GetUserPreference(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = userIDFromToken(r)
	}

	pref, err := h.prefs.GetPreference(r.Context(), userID)
	if err != nil {
		h.handlePreferenceError(w, err, "Failed to fetch user preferences.")
		return
	}
	// a user without saved preferences gets null
	h.CreateResponse(w, http.StatusOK, pref)
}

func (h *Handler) SaveUserPreference(w http.ResponseWriter, r *http.Request) {
	var pref models.UserPreference
	if !h.decode(w, r, &pref) {
		return
	}
	if pref.UserID == "" {
		pref.UserID = userIDFromToken(r)
	}

	saved, err := h.prefs.SavePreference(r.Context(), pref)
	if err != nil {
		h.handlePreferenceError(w, err, "Failed to set user preferences.")
		return
	}
	h.CreateResponse(w, http.StatusOK, saved)
}

func (h *Handler) handlePreferenceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrMissingField) {
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "userId is required"})
		return
	}
	h.HandleError(w, err, fallback)
}

// userIDFromToken reads the user_id claim of a verified token, if any.
func userIDFromToken(r *http.Request) string {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return ""
	}
	switch v := claims["user_id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
