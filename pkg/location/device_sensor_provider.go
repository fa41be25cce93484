package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port        string        // Serial port to which the GPS device is connected
	baudRate    int           // Baud rate for the serial communication
	readTimeout time.Duration // Per-read timeout on the serial port

	openPort func(*serial.Config) (io.ReadCloser, error)
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int, readTimeout time.Duration) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
		openPort: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// GetLocation reads NMEA sentences from the device until a valid fix is seen or ctx is done.
func (d *DeviceSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	c := &serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: d.readTimeout}
	s, err := d.openPort(c)
	if err != nil {
		return Location{}, fmt.Errorf("failed to open GPS port %s: %w", d.port, err)
	}

	type result struct {
		loc Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := ReadNMEAFix(s)
		done <- result{loc: loc, err: err}
	}()

	select {
	case r := <-done:
		s.Close()
		return r.loc, r.err
	case <-ctx.Done():
		// Closing the port unblocks the pending read.
		s.Close()
		return Location{}, ctx.Err()
	}
}

// Close is a no-op; the port is opened per fix.
func (d *DeviceSensorProvider) Close() error {
	return nil
}

// ReadNMEAFix scans NMEA sentences from r and returns the first valid GGA or RMC fix.
func ReadNMEAFix(r io.Reader) (Location, error) {
	scanner := bufio.NewScanner(r)
	var lastErr error
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			lastErr = err
			continue
		}

		switch s := sentence.(type) {
		case nmea.GGA:
			if s.FixQuality == nmea.Invalid {
				continue
			}
			return Location{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Accuracy:  s.HDOP, // HDOP as a proxy for accuracy
			}, nil
		case nmea.RMC:
			if s.Validity != nmea.ValidRMC {
				continue
			}
			return Location{
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}
	if lastErr != nil {
		return Location{}, fmt.Errorf("%w: last parse error: %v", ErrNoFix, lastErr)
	}
	return Location{}, ErrNoFix
}
