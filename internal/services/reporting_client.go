package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/models"
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/rs/zerolog"
)

// DeliveryStatus classifies the result of one delivery attempt.
type DeliveryStatus int

const (
	Delivered DeliveryStatus = iota
	Rejected
	TransportError
)

func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	default:
		return "transport_error"
	}
}

// DeliveryResult is the outcome of Deliver. StatusCode is set for Delivered and Rejected,
// Err for Rejected (with the response excerpt) and TransportError.
type DeliveryResult struct {
	Status     DeliveryStatus
	StatusCode int
	Err        error
}

// Reporter delivers position samples to the collection endpoint.
type Reporter interface {
	Deliver(ctx context.Context, sessionID string, sample location.Position, creds credentials.Credentials) DeliveryResult
}

// maxErrorBody bounds how much of a rejected response is kept for logging.
const maxErrorBody = 512

// ReportingClient posts location reports over HTTP. It never retries.
type ReportingClient struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// Ensure ReportingClient implements Reporter
var _ Reporter = (*ReportingClient)(nil)

// NewReportingClient creates a ReportingClient whose requests time out after timeout.
func NewReportingClient(timeout time.Duration, logger zerolog.Logger) *ReportingClient {
	return &ReportingClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "tracking-agent/" + constants.AgentVersion,
		logger:     logger,
	}
}

// Deliver POSTs the sample to {BaseURL}/api/locations with the bearer token.
func (c *ReportingClient) Deliver(ctx context.Context, sessionID string, sample location.Position, creds credentials.Credentials) DeliveryResult {
	body, err := json.Marshal(models.LocationReport{
		SessionID: sessionID,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
	})
	if err != nil {
		return DeliveryResult{Status: TransportError, Err: fmt.Errorf("failed to serialize location report: %w", err)}
	}

	if creds.BaseURL == "" {
		return DeliveryResult{Status: TransportError, Err: errors.New("no server base URL configured")}
	}
	endpoint := strings.TrimRight(creds.BaseURL, "/") + constants.LocationsPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Status: TransportError, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeliveryResult{Status: TransportError, Err: fmt.Errorf("failed to send location report: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("Location report accepted")
		return DeliveryResult{Status: Delivered, StatusCode: resp.StatusCode}
	}

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return DeliveryResult{
		Status:     Rejected,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("server rejected location report: %d %s", resp.StatusCode, strings.TrimSpace(string(excerpt))),
	}
}
