package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/kpi-services/internal/kpisvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "card.updated", "error"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

type CardEventType string

const (
	CardCreated    CardEventType = "card.created"
	CardUpdated    CardEventType = "card.updated"
	CardHidden     CardEventType = "card.hidden"
	CardsReordered CardEventType = "cards.reordered"
)

// CardEvent is emitted after every successful card mutation.
type CardEvent struct {
	Type     CardEventType       `json:"type"`
	Card     *models.KpiCard     `json:"card,omitempty"`
	Order    []models.OrderEntry `json:"order,omitempty"`
	Instance string              `json:"instance,omitempty"` // publishing service instance
	At       time.Time           `json:"at"`
}

// ToWSMessage wraps the event in the envelope sent to dashboards.
func (e CardEvent) ToWSMessage() (*WSMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: string(e.Type), Data: data}, nil
}
