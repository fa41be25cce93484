package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/tracking-agent/internal/mocks"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/internal/services"
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/benmeehan/tracking-agent/pkg/status"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var (
	testNotice = status.Notice{Title: "BM Security", Body: "Tracking your location", Importance: "low"}
	testCreds  = &credentials.Credentials{SessionID: "session-42", BearerToken: "token", BaseURL: "https://api.example.com"}
	lastKnown  = location.Position{Latitude: 12.3, Longitude: 98.7, ObservedAt: time.Now().Add(-10 * time.Minute)}
	freshFix   = location.Position{Latitude: 12.345678, Longitude: 98.765432, ObservedAt: time.Now()}
	delivered  = services.DeliveryResult{Status: services.Delivered, StatusCode: 201}
)

type jobFixture struct {
	store     *mocks.MockCredentialStore
	source    *mocks.MockLocationSource
	reporter  *mocks.MockReporter
	indicator *mocks.MockIndicator
	events    []string
	job       *services.TrackingJob
}

func newJobFixture() *jobFixture {
	f := &jobFixture{
		store:     new(mocks.MockCredentialStore),
		source:    new(mocks.MockLocationSource),
		reporter:  new(mocks.MockReporter),
		indicator: new(mocks.MockIndicator),
	}
	f.job = services.NewTrackingJob(testNotice, location.PriorityHighAccuracy, f.store, f.source, f.reporter, f.indicator, zerolog.Nop())
	return f
}

func (f *jobFixture) record(event string) func(mock.Arguments) {
	return func(mock.Arguments) { f.events = append(f.events, event) }
}

func (f *jobFixture) showSucceeds() {
	f.indicator.On("Show", mock.Anything, testNotice).Run(f.record("show")).Return(nil)
}

func (f *jobFixture) assertAll(t *testing.T) {
	f.store.AssertExpectations(t)
	f.source.AssertExpectations(t)
	f.reporter.AssertExpectations(t)
	f.indicator.AssertExpectations(t)
}

// TestTrackingJob_Run_DeliversLastKnownThenFresh covers credentials present, a last known
// position and a successful fresh fix.
func TestTrackingJob_Run_DeliversLastKnownThenFresh(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Run(f.record("read")).Return(testCreds, nil)
	f.source.On("LastKnown").Run(f.record("last_known")).Return(lastKnown, true)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Run(f.record("fresh")).Return(freshFix, nil)
	f.reporter.On("Deliver", mock.Anything, "session-42", lastKnown, *testCreds).Run(f.record("deliver_last")).Return(delivered)
	f.reporter.On("Deliver", mock.Anything, "session-42", freshFix, *testCreds).Run(f.record("deliver_fresh")).Return(delivered)

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	assert.Equal(t, []string{"show", "read", "last_known", "deliver_last", "fresh", "deliver_fresh"}, f.events)
	assert.Equal(t, 1, f.indicator.Released)
	f.reporter.AssertNumberOfCalls(t, "Deliver", 2)
	f.assertAll(t)
}

func TestTrackingJob_Run_NoCredentialsSkipsDelivery(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(nil, nil)
	f.source.On("LastKnown").Return(location.Position{}, false)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Return(freshFix, nil)

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	f.reporter.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestTrackingJob_Run_PartialCredentialsSkipsDelivery(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(&credentials.Credentials{SessionID: "session-42", BaseURL: "https://api.example.com"}, nil)
	f.source.On("LastKnown").Return(lastKnown, true)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Return(freshFix, nil)

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	f.reporter.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestTrackingJob_Run_CredentialReadErrorSkipsDelivery(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(nil, errors.New("corrupt credentials file"))
	f.source.On("LastKnown").Return(location.Position{}, false)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Return(freshFix, nil)

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	f.reporter.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestTrackingJob_Run_FreshFixTimeoutRetries checks that the last known delivery
// still happens before the failing fix turns the cycle into a retry.
func TestTrackingJob_Run_FreshFixTimeoutRetries(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(testCreds, nil)
	f.source.On("LastKnown").Return(lastKnown, true)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).
		Return(location.Position{}, context.DeadlineExceeded)
	f.reporter.On("Deliver", mock.Anything, "session-42", lastKnown, *testCreds).Return(delivered).Once()

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Retry, outcome)
	f.reporter.AssertNumberOfCalls(t, "Deliver", 1)
	assert.Equal(t, 1, f.indicator.Released)
	f.assertAll(t)
}

func TestTrackingJob_Run_RejectedDeliveryStillSucceeds(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(testCreds, nil)
	f.source.On("LastKnown").Return(location.Position{}, false)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Return(freshFix, nil)
	f.reporter.On("Deliver", mock.Anything, "session-42", freshFix, *testCreds).
		Return(services.DeliveryResult{Status: services.Rejected, StatusCode: 401, Err: errors.New("unauthorized")})

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	f.assertAll(t)
}

func TestTrackingJob_Run_TransportErrorsStillSucceed(t *testing.T) {
	f := newJobFixture()
	f.showSucceeds()
	f.store.On("Read").Return(testCreds, nil)
	f.source.On("LastKnown").Return(lastKnown, true)
	f.source.On("Fresh", mock.Anything, location.PriorityHighAccuracy).Return(freshFix, nil)
	f.reporter.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(services.DeliveryResult{Status: services.TransportError, Err: errors.New("connection refused")})

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Success, outcome)
	f.reporter.AssertNumberOfCalls(t, "Deliver", 2)
}

func TestTrackingJob_Run_IndicatorFailureRetriesBeforeAnyWork(t *testing.T) {
	f := newJobFixture()
	f.indicator.On("Show", mock.Anything, testNotice).Return(errors.New("broker unavailable"))

	outcome := f.job.Run(context.Background())

	assert.Equal(t, scheduler.Retry, outcome)
	f.store.AssertNotCalled(t, "Read")
	f.source.AssertNotCalled(t, "LastKnown")
	f.source.AssertNotCalled(t, "Fresh", mock.Anything, mock.Anything)
	f.reporter.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.indicator.Released)
}

func TestTrackingJob_Run_UsesConfiguredPriority(t *testing.T) {
	store := new(mocks.MockCredentialStore)
	source := new(mocks.MockLocationSource)
	indicator := new(mocks.MockIndicator)
	job := services.NewTrackingJob(testNotice, location.PriorityLowPower, store, source, new(mocks.MockReporter), indicator, zerolog.Nop())

	indicator.On("Show", mock.Anything, testNotice).Return(nil)
	store.On("Read").Return(nil, nil)
	source.On("LastKnown").Return(location.Position{}, false)
	source.On("Fresh", mock.Anything, location.PriorityLowPower).Return(freshFix, nil)

	assert.Equal(t, scheduler.Success, job.Run(context.Background()))
	source.AssertExpectations(t)
}
