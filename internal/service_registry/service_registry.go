package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/registry"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/internal/services"
	"github.com/benmeehan/tracking-agent/internal/utils"
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/benmeehan/tracking-agent/pkg/file"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/benmeehan/tracking-agent/pkg/mqtt"
	"github.com/benmeehan/tracking-agent/pkg/status"
	"github.com/rs/zerolog"
)

// ServiceRegistry manages the lifecycle of the agent services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient             // nil when status publishing over MQTT is disabled
	fileClient  file.FileOperations
	scheduler   *scheduler.Scheduler
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, fileClient file.FileOperations, sched *scheduler.Scheduler,
	logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		fileClient: fileClient,
		scheduler:  sched,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns the registered service under name.
func (sr *ServiceRegistry) Service(name string) (registry.Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:        "tracking",
			enabled:     true,
			constructor: func() (registry.Service, error) { return sr.newTrackingService(config) },
		},
		{
			name:    "heartbeat",
			enabled: sr.mqttClient != nil && config.Status.MQTT.HeartbeatTopic != "",
			constructor: func() (registry.Service, error) {
				return services.NewHeartbeatService(
					config.Status.MQTT.HeartbeatTopic,
					config.Status.MQTT.HeartbeatInterval,
					config.Status.MQTT.QOS,
					config.Status.MQTT.ClientID,
					constants.TrackingWorkName,
					sr.scheduler,
					sr.mqttClient,
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

func (sr *ServiceRegistry) newTrackingService(config *utils.Config) (registry.Service, error) {
	source, err := sr.newLocationSource(config)
	if err != nil {
		return nil, err
	}

	var indicator status.Indicator = status.NewLogIndicator(sr.Logger)
	if sr.mqttClient != nil {
		indicator = status.NewMQTTIndicator(
			sr.mqttClient,
			config.Status.MQTT.Topic,
			config.Status.MQTT.QOS,
			config.Status.MQTT.PublishTimeout,
			sr.Logger,
		)
	}

	job := services.NewTrackingJob(
		status.Notice{Title: config.Status.Title, Body: config.Status.Body, Importance: constants.StatusImportance},
		config.Priority(),
		credentials.NewFileStore(config.Credentials.File, config.Credentials.DefaultBaseURL, sr.fileClient),
		source,
		services.NewReportingClient(config.Tracking.RequestTimeout, sr.Logger),
		indicator,
		sr.Logger.With().Str("work", constants.TrackingWorkName).Logger(),
	)

	registration := scheduler.Registration{
		Name:                   constants.TrackingWorkName,
		Tags:                   []string{constants.TrackingWorkTag},
		Period:                 config.Tracking.Period,
		Flex:                   config.Tracking.Flex,
		Backoff:                config.Backoff(),
		ConstraintPollInterval: config.Tracking.ConstraintPollInterval,
	}
	if config.Tracking.RequireNetwork {
		registration.Constraints = append(registration.Constraints, scheduler.NewNetworkConstraint(sr.Logger))
	}

	return services.NewTrackingService(sr.scheduler, registration, job, source, sr.Logger), nil
}

// newLocationSource routes high accuracy requests to the GPS sensor and the rest to
// the geolocation API. Missing providers fall back to whichever one is configured.
func (sr *ServiceRegistry) newLocationSource(config *utils.Config) (*location.FusedSource, error) {
	source := location.NewFusedSource(config.Location.FixTimeout, config.Location.MaxLastKnownAge, sr.Logger)

	if sensor := config.Location.Sensor; sensor.Enabled {
		source.AddProvider(location.PriorityHighAccuracy,
			location.NewDeviceSensorProvider(sensor.DevicePort, sensor.BaudRate, sensor.ReadTimeout))
	}

	if geo := config.Location.Geolocation; geo.Enabled {
		provider, err := location.NewGoogleGeolocationProvider(geo.MapsAPIKey, geo.ScanWiFi, geo.ModemIndex, sr.Logger)
		if err != nil {
			sr.Logger.Error().Err(err).Msg("failed to create Google Geolocation provider")
			return nil, err
		}
		source.AddProvider(location.PriorityBalanced, provider)
		source.AddProvider(location.PriorityLowPower, provider)
	}

	return source, nil
}
