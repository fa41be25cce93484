package location_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleGeolocationProvider_GetLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/geolocation/v1/geolocate", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location":{"lat":12.345678,"lng":98.765432},"accuracy":25.5}`))
	}))
	defer server.Close()

	provider, err := location.NewGoogleGeolocationProvider("AIzaTestKey", false, -1, zerolog.Nop(), maps.WithBaseURL(server.URL))
	require.NoError(t, err)

	loc, err := provider.GetLocation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, location.Location{Latitude: 12.345678, Longitude: 98.765432, Accuracy: 25.5}, loc)
	assert.NoError(t, provider.Close())
}

func TestGoogleGeolocationProvider_GetLocation_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found","errors":[{"domain":"geolocation","reason":"notFound","message":"Not Found"}]}}`))
	}))
	defer server.Close()

	provider, err := location.NewGoogleGeolocationProvider("AIzaTestKey", false, -1, zerolog.Nop(), maps.WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = provider.GetLocation(context.Background())
	assert.Error(t, err)
}

func TestNewGoogleGeolocationProvider_MissingKey(t *testing.T) {
	_, err := location.NewGoogleGeolocationProvider("", false, -1, zerolog.Nop())
	assert.Error(t, err)
}
