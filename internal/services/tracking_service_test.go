package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	closed atomic.Int32
	err    error
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return c.err
}

func trackingRegistration() scheduler.Registration {
	return scheduler.Registration{
		Name:    constants.TrackingWorkName,
		Tags:    []string{constants.TrackingWorkTag},
		Period:  time.Hour,
		Flex:    time.Minute,
		Backoff: scheduler.BackoffPolicy{Kind: scheduler.BackoffLinear, InitialDelay: time.Second, MaxDelay: time.Minute},
	}
}

func TestTrackingService_StartReplacesTaggedWork(t *testing.T) {
	sched := scheduler.NewScheduler(zerolog.Nop())
	defer sched.Shutdown()

	var staleRuns atomic.Int32
	_, err := sched.EnqueueUniquePeriodic(scheduler.Registration{
		Name:   "stale_location_work",
		Tags:   []string{constants.TrackingWorkTag},
		Period: time.Hour,
	}, scheduler.WorkerFunc(func(ctx context.Context) scheduler.Outcome {
		staleRuns.Add(1)
		return scheduler.Success
	}))
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	job := scheduler.WorkerFunc(func(ctx context.Context) scheduler.Outcome {
		select {
		case ran <- struct{}{}:
		default:
		}
		return scheduler.Success
	})
	source := &closeCounter{}
	svc := services.NewTrackingService(sched, trackingRegistration(), job, source, zerolog.Nop())

	require.NoError(t, svc.Start())
	assert.NotEmpty(t, svc.WorkID())
	assert.EqualError(t, svc.Start(), "tracking service is already running")

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("tracking job did not run")
	}

	_, staleExists := sched.Info("stale_location_work")
	assert.False(t, staleExists)

	info, ok := sched.Info(constants.TrackingWorkName)
	require.True(t, ok)
	assert.Equal(t, svc.WorkID(), info.ID)

	require.NoError(t, svc.Stop())
	assert.Empty(t, svc.WorkID())
	assert.Equal(t, int32(1), source.closed.Load())
	_, ok = sched.Info(constants.TrackingWorkName)
	assert.False(t, ok)
}

func TestTrackingService_StopNotRunning(t *testing.T) {
	sched := scheduler.NewScheduler(zerolog.Nop())
	defer sched.Shutdown()

	svc := services.NewTrackingService(sched, trackingRegistration(), scheduler.WorkerFunc(func(context.Context) scheduler.Outcome {
		return scheduler.Success
	}), nil, zerolog.Nop())

	assert.EqualError(t, svc.Stop(), "tracking service is not running")
}

func TestTrackingService_StopReturnsSourceCloseError(t *testing.T) {
	sched := scheduler.NewScheduler(zerolog.Nop())
	defer sched.Shutdown()

	source := &closeCounter{err: errors.New("port busy")}
	svc := services.NewTrackingService(sched, trackingRegistration(), scheduler.WorkerFunc(func(context.Context) scheduler.Outcome {
		return scheduler.Success
	}), source, zerolog.Nop())

	require.NoError(t, svc.Start())
	assert.EqualError(t, svc.Stop(), "port busy")
}

func TestTrackingService_StartFailsAfterShutdown(t *testing.T) {
	sched := scheduler.NewScheduler(zerolog.Nop())
	sched.Shutdown()

	svc := services.NewTrackingService(sched, trackingRegistration(), scheduler.WorkerFunc(func(context.Context) scheduler.Outcome {
		return scheduler.Success
	}), nil, zerolog.Nop())

	assert.ErrorIs(t, svc.Start(), scheduler.ErrShutdown)
}
