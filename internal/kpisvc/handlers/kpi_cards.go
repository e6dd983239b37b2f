package handlers

import (
	"net/http"
	"strings"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
	"github.com/go-chi/chi"
)

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListVisible(r.Context())
	if err != nil {
		h.HandleError(w, err, "Failed to fetch KPI cards.")
		return
	}
	h.CreateResponse(w, http.StatusOK, cards)
}

func (h *Handler) ListAvailableCards(w http.ResponseWriter, r *http.Request) {
	var displayed []string
	if raw := r.URL.Query().Get("displayedCardIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				displayed = append(displayed, id)
			}
		}
	}

	cards, err := h.cards.ListAvailable(r.Context(), displayed)
	if err != nil {
		h.HandleError(w, err, "Failed to fetch available KPI cards.")
		return
	}
	h.CreateResponse(w, http.StatusOK, cards)
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var in models.NewCard
	if !h.decode(w, r, &in) {
		return
	}

	card, created, err := h.cards.Create(r.Context(), in)
	if err != nil {
		h.HandleError(w, err, "Failed to create KPI card.")
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	h.CreateResponse(w, code, card)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err, "Failed to fetch KPI card.")
		return
	}
	h.CreateResponse(w, http.StatusOK, card)
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var patch models.CardPatch
	if !h.decode(w, r, &patch) {
		return
	}

	card, err := h.cards.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.HandleError(w, err, "Failed to update KPI card.")
		return
	}
	h.CreateResponse(w, http.StatusOK, card)
}

func (h *Handler) SetCardVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsVisible *bool `json:"isVisible"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.cards.SetVisibility(r.Context(), chi.URLParam(r, "id"), req.IsVisible)
	if err != nil {
		h.HandleError(w, err, "Failed to update KPI card visibility.")
		return
	}
	h.CreateResponse(w, http.StatusOK, card)
}

func (h *Handler) HideCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.Hide(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleError(w, err, "Failed to hide KPI card.")
		return
	}
	h.CreateResponse(w, http.StatusOK, MessageResponse{Message: "KPI card hidden from dashboard successfully."})
}

func (h *Handler) GetCardYield(w http.ResponseWriter, r *http.Request) {
	y, err := h.cards.Yield(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleError(w, err, "Failed to calculate yield.")
		return
	}
	h.CreateResponse(w, http.StatusOK, y)
}

// ReorderCards persists a drag-reorder of the dashboard in one write and
// answers with the visible cards in their new order.
func (h *Handler) ReorderCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cards []models.OrderEntry `json:"cards"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.cards.Reorder(r.Context(), req.Cards); err != nil {
		h.HandleError(w, err, "Failed to reorder KPI cards.")
		return
	}

	cards, err := h.cards.ListVisible(r.Context())
	if err != nil {
		h.HandleError(w, err, "Failed to fetch KPI cards.")
		return
	}
	h.CreateResponse(w, http.StatusOK, cards)
}
