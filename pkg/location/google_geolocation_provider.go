package location

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider uses the Google Maps API to get location data.
type GoogleGeolocationProvider struct {
	client     *maps.Client // Maps API client for making geolocation requests
	scanWiFi   bool         // Include nearby Wi-Fi access points in the request
	modemIndex int          // ModemManager index used for cell tower data, negative disables it
	logger     zerolog.Logger
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
// Extra client options (for example maps.WithBaseURL) are appended after the API key.
func NewGoogleGeolocationProvider(apiKey string, scanWiFi bool, modemIndex int, logger zerolog.Logger,
	opts ...maps.ClientOption) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &GoogleGeolocationProvider{
		client:     c,
		scanWiFi:   scanWiFi,
		modemIndex: modemIndex,
		logger:     logger,
	}, nil
}

// GetLocation retrieves the device's location using Google Maps Geolocation API.
// Wi-Fi and cell scans are best effort; the request falls back to IP geolocation.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	if g.scanWiFi {
		wifiAPs, err := getWiFiAccessPoints(ctx)
		if err != nil {
			g.logger.Debug().Err(err).Msg("Wi-Fi scan unavailable, continuing without access points")
		}
		req.WiFiAccessPoints = wifiAPs
	}

	if g.modemIndex >= 0 {
		cellTowers, err := getCellTowers(ctx, g.modemIndex)
		if err != nil {
			g.logger.Debug().Err(err).Int("modem", g.modemIndex).Msg("Cell scan unavailable, continuing without towers")
		}
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}

	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// Close is a no-op; the maps client holds no connection state of its own.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
