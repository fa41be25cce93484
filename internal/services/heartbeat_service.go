package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/models"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

// WorkInfoProvider exposes registration snapshots.
type WorkInfoProvider interface {
	Info(name string) (scheduler.WorkInfo, bool)
}

// HeartbeatService periodically publishes a heartbeat carrying the tracking work state.
type HeartbeatService struct {
	PubTopic   string
	Interval   time.Duration
	QOS        int
	ClientID   string
	WorkName   string
	Work       WorkInfoProvider
	MqttClient mqtt.MQTTClient
	Logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatService initializes a new HeartbeatService.
func NewHeartbeatService(pubTopic string, interval time.Duration, qos int, clientID, workName string,
	work WorkInfoProvider, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *HeartbeatService {

	return &HeartbeatService{
		PubTopic:   pubTopic,
		Interval:   interval,
		QOS:        qos,
		ClientID:   clientID,
		WorkName:   workName,
		Work:       work,
		MqttClient: mqttClient,
		Logger:     logger,
	}
}

// Start launches the heartbeat loop in a separate goroutine.
func (h *HeartbeatService) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HeartbeatService is already running")
		return errors.New("heartbeat service is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHeartbeatLoop()
	}()

	h.Logger.Info().Str("topic", h.PubTopic).Dur("interval", h.Interval).Msg("HeartbeatService started successfully")
	return nil
}

// Stop gracefully stops the heartbeat service.
func (h *HeartbeatService) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HeartbeatService is not running")
		return errors.New("heartbeat service is not running")
	}

	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HeartbeatService stopped successfully")
	return nil
}

// runHeartbeatLoop continuously sends heartbeat messages at the specified interval.
func (h *HeartbeatService) runHeartbeatLoop() {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.publish()
		case <-h.ctx.Done():
			h.Logger.Info().Msg("HeartbeatService stopping gracefully")
			return
		}
	}
}

func (h *HeartbeatService) publish() {
	payload, err := json.Marshal(h.heartbeat(time.Now()))
	if err != nil {
		h.Logger.Error().Err(err).Msg("Failed to serialize heartbeat message")
		return
	}

	token := h.MqttClient.Publish(h.PubTopic, byte(h.QOS), false, payload)
	if !token.WaitTimeout(h.Interval) {
		h.Logger.Warn().Msg("Timed out publishing heartbeat message")
		return
	}
	if err := token.Error(); err != nil {
		h.Logger.Error().Err(err).Msg("Failed to publish heartbeat message")
		return
	}
	h.Logger.Debug().Msg("Heartbeat published successfully")
}

func (h *HeartbeatService) heartbeat(now time.Time) models.Heartbeat {
	heartbeat := models.Heartbeat{
		ClientID:     h.ClientID,
		AgentVersion: constants.AgentVersion,
		Timestamp:    now,
	}

	info, ok := h.Work.Info(h.WorkName)
	if !ok {
		return heartbeat
	}
	heartbeat.Work = &models.WorkStatus{
		ID:         info.ID,
		Name:       info.Name,
		State:      string(info.State),
		RunAttempt: info.RunAttempt,
		Runs:       info.Runs,
		LastRunAt:  info.LastRunAt,
		NextRunAt:  info.NextRunAt,
	}
	if info.Runs > 0 {
		heartbeat.Work.LastOutcome = info.LastOutcome.String()
	}
	return heartbeat
}
