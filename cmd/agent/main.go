package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/models"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/internal/service_registry"
	"github.com/benmeehan/tracking-agent/internal/utils"
	"github.com/benmeehan/tracking-agent/pkg/file"
	"github.com/benmeehan/tracking-agent/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const configEnv = "TRACKING_AGENT_CONFIG"

func main() {
	// Set up structured logging with JSON output
	log := zerolog.New(os.Stdout).With().Timestamp().Str("agent_version", constants.AgentVersion).Logger()

	configPath := os.Getenv(configEnv)
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	level, _ := zerolog.ParseLevel(config.Logging.Level)
	log = log.Level(level)

	// Initialize the shared MQTT connection when status publishing is enabled
	var mqttClient mqtt.MQTTClient
	if config.Status.MQTT.Enabled {
		// Generate a unique MQTT Client ID by appending a UUID
		config.Status.MQTT.ClientID = config.Status.MQTT.ClientID + "-" + uuid.New().String()
		log.Info().Str("client_id", config.Status.MQTT.ClientID).Msg("Using MQTT Client ID")

		will, err := json.Marshal(models.StatusMessage{State: constants.StatusStateOffline})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to serialize will message")
		}

		mqttService := mqtt.NewMqttService(fileClient)
		err = mqttService.Initialize(mqtt.Options{
			Broker:         config.Status.MQTT.Broker,
			ClientID:       config.Status.MQTT.ClientID,
			Username:       config.Status.MQTT.Username,
			Password:       config.Status.MQTT.Password,
			CACertPath:     config.Status.MQTT.CACertificate,
			ConnectTimeout: config.Status.MQTT.PublishTimeout,
			WillTopic:      config.Status.MQTT.Topic,
			WillPayload:    will,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		defer mqttService.Disconnect(250)
		mqttClient = mqttService
	}

	sched := scheduler.NewScheduler(log)

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, fileClient, sched, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().
		Dur("period", config.Tracking.Period).
		Dur("flex", config.Tracking.Flex).
		Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	started := time.Now()
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	sched.Shutdown()
	log.Info().Dur("elapsed", time.Since(started)).Msg("Shutdown complete")
}
