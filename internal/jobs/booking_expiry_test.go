package jobs

import (
	"context"
	"errors"
	"testing"

	"mugo_plumbing_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockBookingExpirer struct {
	mock.Mock
}

func (m *MockBookingExpirer) ExpireStalePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestBookingExpiryJob_RunOnce(t *testing.T) {
	expirer := new(MockBookingExpirer)
	expirer.On("ExpireStalePending", mock.Anything).Return(3, nil).Once()
	job := NewBookingExpiryJob(expirer, zap.NewNop(), &config.Config{})

	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	expirer.AssertExpectations(t)
}

func TestBookingExpiryJob_RunJobLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	expirer := new(MockBookingExpirer)
	expirer.On("ExpireStalePending", mock.Anything).Return(0, errors.New("store down"))
	job := NewBookingExpiryJob(expirer, zap.New(core), &config.Config{})

	job.runJob()
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Booking expiry job run failed", logs.All()[0].Message)
}

func TestBookingExpiryJob_Schedule(t *testing.T) {
	expirer := new(MockBookingExpirer)

	disabled := NewBookingExpiryJob(expirer, zap.NewNop(), &config.Config{})
	assert.NoError(t, disabled.SetupAndStart())

	invalid := NewBookingExpiryJob(expirer, zap.NewNop(), &config.Config{BookingExpiryJobSchedule: "not a spec"})
	assert.Error(t, invalid.SetupAndStart())

	hourly := NewBookingExpiryJob(expirer, zap.NewNop(), &config.Config{BookingExpiryJobSchedule: "@hourly"})
	require.NoError(t, hourly.SetupAndStart())
	assert.Len(t, hourly.cronScheduler.Entries(), 1)
	hourly.Stop()
}

func TestCronLogger_PairsKeys(t *testing.T) {
	fields := fieldsFrom([]interface{}{"entry", 1, "dangling"})
	require.Len(t, fields, 2)
	assert.Equal(t, "entry", fields[0].Key)
	assert.Equal(t, "dangling", fields[1].Key)
}
