package broker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/kpi-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const CardEventsTopic = "kpi.cards"

// Broker relays card events between service instances over NATS.
type Broker struct {
	Conn       *nats.Conn
	instanceId string
}

func NewBroker(nc *nats.Conn, instanceId string) *Broker {
	return &Broker{
		Conn:       nc,
		instanceId: instanceId,
	}
}

// PublishCardEvent stamps the event with this instance and publishes it.
func (b *Broker) PublishCardEvent(ev comm.CardEvent) error {
	ev.Instance = b.instanceId
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return b.Publish(CardEventsTopic, payload)
}

// consume card events from every instance, including this one
func (b *Broker) SubscribeCardEvents(topic string, fn func(comm.CardEvent)) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, func(msg *nats.Msg) {
		ev, err := DecodeCardEvent(msg.Data)
		if err != nil {
			log.Errorf("Error decoding card event on %s: %s", msg.Subject, err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func DecodeCardEvent(data []byte) (comm.CardEvent, error) {
	var ev comm.CardEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return comm.CardEvent{}, err
	}
	if ev.Type == "" {
		return comm.CardEvent{}, errors.New("card event without type")
	}
	return ev, nil
}
