package status

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/models"
	"github.com/benmeehan/tracking-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// MQTTIndicator publishes the notice as a retained message so any subscriber
// (a dashboard, a companion app) sees the current tracking state.
type MQTTIndicator struct {
	client         mqtt.MQTTClient
	topic          string
	qos            byte
	publishTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// NewMQTTIndicator creates an MQTTIndicator publishing to topic.
func NewMQTTIndicator(client mqtt.MQTTClient, topic string, qos int, publishTimeout time.Duration, logger zerolog.Logger) *MQTTIndicator {
	return &MQTTIndicator{
		client:         client,
		topic:          topic,
		qos:            byte(qos),
		publishTimeout: publishTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// Show publishes the active state. The returned release publishes the idle state.
func (m *MQTTIndicator) Show(ctx context.Context, notice Notice) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	active := models.StatusMessage{
		State:      constants.StatusStateActive,
		Title:      notice.Title,
		Body:       notice.Body,
		Importance: notice.Importance,
		Ongoing:    true,
		Timestamp:  m.now(),
	}
	if err := m.publish(active); err != nil {
		return nil, fmt.Errorf("failed to publish status notice: %w", err)
	}
	m.logger.Debug().Str("topic", m.topic).Msg("Status notice published")

	var once sync.Once
	return func() {
		once.Do(func() {
			idle := models.StatusMessage{State: constants.StatusStateIdle, Timestamp: m.now()}
			if err := m.publish(idle); err != nil {
				m.logger.Warn().Err(err).Str("topic", m.topic).Msg("Failed to clear status notice")
			}
		})
	}, nil
}

func (m *MQTTIndicator) publish(msg models.StatusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	token := m.client.Publish(m.topic, m.qos, true, payload)
	if !token.WaitTimeout(m.publishTimeout) {
		return fmt.Errorf("publish to %s timed out after %s", m.topic, m.publishTimeout)
	}
	return token.Error()
}
