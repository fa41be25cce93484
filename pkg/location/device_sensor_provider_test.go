package location

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarm/serial"
)

const (
	ggaFix     = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaNoFix   = "$GPGGA,123519,4807.038,N,01131.000,E,0,00,0.9,545.4,M,46.9,M,,*4E"
	gnggaFix   = "$GNGGA,101010,5130.000,N,00007.500,W,1,10,1.2,20.0,M,47.0,M,,*79"
	rmcValid   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcVoid    = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	badSumLine = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00"
)

func nmeaStream(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\r\n") + "\r\n")
}

func TestReadNMEAFix_GGA(t *testing.T) {
	loc, err := ReadNMEAFix(nmeaStream("garbage", ggaNoFix, ggaFix))

	require.NoError(t, err)
	assert.InDelta(t, 48.1173, loc.Latitude, 1e-6)
	assert.InDelta(t, 11.516667, loc.Longitude, 1e-6)
	assert.InDelta(t, 0.9, loc.Accuracy, 1e-9)
}

func TestReadNMEAFix_MultiConstellationTalker(t *testing.T) {
	loc, err := ReadNMEAFix(nmeaStream(gnggaFix))

	require.NoError(t, err)
	assert.InDelta(t, 51.5, loc.Latitude, 1e-6)
	assert.InDelta(t, -0.125, loc.Longitude, 1e-6)
}

func TestReadNMEAFix_RMC(t *testing.T) {
	loc, err := ReadNMEAFix(nmeaStream(rmcVoid, rmcValid))

	require.NoError(t, err)
	assert.InDelta(t, 48.1173, loc.Latitude, 1e-6)
	assert.Zero(t, loc.Accuracy)
}

func TestReadNMEAFix_NoFix(t *testing.T) {
	_, err := ReadNMEAFix(nmeaStream(ggaNoFix, rmcVoid))
	assert.ErrorIs(t, err, ErrNoFix)

	_, err = ReadNMEAFix(nmeaStream(badSumLine))
	assert.ErrorIs(t, err, ErrNoFix)
}

type fakePort struct {
	io.Reader
	closed chan struct{}
}

func (f *fakePort) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

// blockingReader blocks until the port is closed.
type blockingReader struct{ closed chan struct{} }

func (b blockingReader) Read(p []byte) (int, error) {
	<-b.closed
	return 0, io.EOF
}

func TestDeviceSensorProvider_GetLocation(t *testing.T) {
	port := &fakePort{Reader: nmeaStream(ggaFix), closed: make(chan struct{})}
	d := NewDeviceSensorProvider("/dev/ttyTEST", 9600, time.Second)
	d.openPort = func(c *serial.Config) (io.ReadCloser, error) {
		assert.Equal(t, "/dev/ttyTEST", c.Name)
		assert.Equal(t, 9600, c.Baud)
		return port, nil
	}

	loc, err := d.GetLocation(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 48.1173, loc.Latitude, 1e-6)
	<-port.closed
}

func TestDeviceSensorProvider_GetLocation_OpenError(t *testing.T) {
	d := NewDeviceSensorProvider("/dev/ttyTEST", 9600, time.Second)
	d.openPort = func(*serial.Config) (io.ReadCloser, error) {
		return nil, errors.New("permission denied")
	}

	_, err := d.GetLocation(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestDeviceSensorProvider_GetLocation_ContextCancelled(t *testing.T) {
	closed := make(chan struct{})
	port := &fakePort{Reader: blockingReader{closed: closed}, closed: closed}
	d := NewDeviceSensorProvider("/dev/ttyTEST", 9600, time.Second)
	d.openPort = func(*serial.Config) (io.ReadCloser, error) { return port, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.GetLocation(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
