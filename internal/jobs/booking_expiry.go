// File: internal/jobs/booking_expiry.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"mugo_plumbing_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BookingExpirer cancels pending bookings that were never picked up.
type BookingExpirer interface {
	ExpireStalePending(ctx context.Context) (int, error)
}

// BookingExpiryJob holds dependencies for the booking expiry job.
type BookingExpiryJob struct {
	bookings      BookingExpirer
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewBookingExpiryJob creates a new BookingExpiryJob.
func NewBookingExpiryJob(bookings BookingExpirer, logger *zap.Logger, cfg *config.Config) *BookingExpiryJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)
	return &BookingExpiryJob{
		bookings:      bookings,
		logger:        logger.Named("BookingExpiryJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty schedule disables it.
func (j *BookingExpiryJob) SetupAndStart() error {
	jobSpec := j.cfg.BookingExpiryJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Booking expiry job schedule not defined (BOOKING_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule booking expiry job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Booking expiry job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *BookingExpiryJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("Booking expiry job run failed", zap.Error(err))
	}
}

// RunOnce performs one expiry pass.
func (j *BookingExpiryJob) RunOnce(ctx context.Context) (int, error) {
	j.logger.Info("Starting booking expiry run...")
	expired, err := j.bookings.ExpireStalePending(ctx)
	if err != nil {
		return expired, err
	}
	j.logger.Info("Booking expiry run completed", zap.Int("bookings_expired", expired))
	return expired, nil
}

// Stop gracefully stops the cron scheduler.
func (j *BookingExpiryJob) Stop() {
	j.logger.Info("Stopping booking expiry job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Booking expiry job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Booking expiry job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, fieldsFrom(keysAndValues)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(fieldsFrom(keysAndValues), zap.Error(err))...)
}

func fieldsFrom(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
