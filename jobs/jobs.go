// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"envmon/models"
	"envmon/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CalibrationMetric is the alert metric used for overdue calibrations.
const CalibrationMetric = "calibration"

type Jobs struct {
	sensors   *services.SensorService
	alerts    *services.AlertService
	settings  *services.SettingsService
	env       *services.EnvironmentalService
	publisher services.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	sensors *services.SensorService,
	alerts *services.AlertService,
	settings *services.SettingsService,
	env *services.EnvironmentalService,
	publisher services.Publisher,
	logger *zap.Logger,
) *Jobs {
	return &Jobs{
		sensors:   sensors,
		alerts:    alerts,
		settings:  settings,
		env:       env,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckCalibrations raises one alert per overdue sensor that does not
// already have an open calibration alert. It returns how many were raised.
func (j *Jobs) CheckCalibrations(ctx context.Context) (int, error) {
	now := j.now()
	due, err := j.sensors.DueForCalibration(ctx, now)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, sensor := range due {
		open, err := j.alerts.HasOpen(ctx, sensor.ID, CalibrationMetric)
		if err != nil {
			return raised, err
		}
		if open {
			continue
		}

		overdue := now.Sub(*sensor.NextCalibration).Hours() / 24
		id := sensor.ID
		alert := models.SensorAlert{
			SensorID:  &id,
			DataType:  sensor.Type,
			Metric:    CalibrationMetric,
			Value:     overdue,
			Threshold: 0,
			Severity:  models.SeverityMedium,
			Message: fmt.Sprintf("Sensor %s is overdue for calibration since %s",
				sensor.Name, sensor.NextCalibration.Format("2006-01-02")),
		}
		if err := j.alerts.Raise(ctx, &alert); err != nil {
			return raised, err
		}
		if j.publisher != nil {
			j.publisher.Publish(services.EventAlert, alert)
		}
		raised++
	}
	return raised, nil
}

// PurgeExpiredReadings deletes readings older than the configured retention.
// A retention of zero days keeps everything.
func (j *Jobs) PurgeExpiredReadings(ctx context.Context) (int64, error) {
	days := j.settings.Global().DataRetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := j.now().AddDate(0, 0, -days)
	removed, err := j.env.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		j.logger.Info("Purged expired readings",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// Scheduler runs the jobs on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *zap.Logger
}

// NewScheduler registers both jobs. Specs accept the robfig/cron syntax,
// including descriptors such as "@daily" and "@every 1h".
func NewScheduler(jobs *Jobs, logger *zap.Logger, calibrationSpec, purgeSpec string) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), jobs: jobs, logger: logger}

	if _, err := s.cron.AddFunc(calibrationSpec, s.runCalibrationCheck); err != nil {
		return nil, fmt.Errorf("schedule calibration check %q: %w", calibrationSpec, err)
	}
	if _, err := s.cron.AddFunc(purgeSpec, s.runRetentionPurge); err != nil {
		return nil, fmt.Errorf("schedule retention purge %q: %w", purgeSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

func (s *Scheduler) runCalibrationCheck() {
	raised, err := s.jobs.CheckCalibrations(context.Background())
	if err != nil {
		s.logger.Error("Calibration check failed", zap.Error(err))
		return
	}
	s.logger.Info("Calibration check finished", zap.Int("alerts_raised", raised))
}

func (s *Scheduler) runRetentionPurge() {
	if _, err := s.jobs.PurgeExpiredReadings(context.Background()); err != nil {
		s.logger.Error("Retention purge failed", zap.Error(err))
	}
}
