package services

import (
	"context"
	"fmt"
	"time"

	"envmon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MalfunctionFilter struct {
	SensorID uint
	Status   models.MalfunctionStatus
}

type MalfunctionService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewMalfunctionService(db *gorm.DB, logger *zap.Logger) *MalfunctionService {
	return &MalfunctionService{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Report files a new active malfunction against an existing sensor.
func (s *MalfunctionService) Report(ctx context.Context, m *models.Malfunction) error {
	if m.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !m.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, m.Severity)
	}
	if err := sensorExists(ctx, s.db, m.SensorID); err != nil {
		return err
	}

	m.ID = 0
	m.Status = models.MalfunctionActive
	m.ResolvedAt = nil
	m.ResolvedBy = ""
	if m.ReportedAt.IsZero() {
		m.ReportedAt = s.now()
	}
	m.ReportedAt = m.ReportedAt.UTC()

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("report malfunction: %w", err)
	}
	s.logger.Info("Malfunction reported",
		zap.Uint("malfunction_id", m.ID),
		zap.Uint("sensor_id", m.SensorID),
		zap.String("severity", string(m.Severity)),
	)
	return nil
}

func (s *MalfunctionService) Get(ctx context.Context, id uint) (*models.Malfunction, error) {
	var m models.Malfunction
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, fmt.Errorf("get malfunction %d: %w", id, notFound(err))
	}
	return &m, nil
}

func (s *MalfunctionService) List(ctx context.Context, filter MalfunctionFilter) ([]models.Malfunction, error) {
	query := s.db.WithContext(ctx).Order("reported_at DESC, id DESC")
	if filter.SensorID != 0 {
		query = query.Where("sensor_id = ?", filter.SensorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var out []models.Malfunction
	if err := query.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list malfunctions: %w", err)
	}
	return out, nil
}

// Resolve closes an active malfunction and logs the fix on the sensor.
func (s *MalfunctionService) Resolve(ctx context.Context, id uint, resolvedBy, notes string) (*models.Malfunction, error) {
	var m models.Malfunction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return fmt.Errorf("get malfunction %d: %w", id, notFound(err))
		}
		if m.Resolved() {
			return fmt.Errorf("malfunction %d: %w", id, ErrAlreadyResolved)
		}

		now := s.now()
		m.Status = models.MalfunctionResolved
		m.ResolvedBy = resolvedBy
		m.ResolvedAt = &now
		m.ResolutionNotes = notes
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("resolve malfunction %d: %w", id, err)
		}

		return appendLog(ctx, tx, &models.MaintenanceLog{
			SensorID:    m.SensorID,
			PerformedBy: resolvedBy,
			Action:      "malfunction_resolved",
			Notes:       fmt.Sprintf("Resolved malfunction #%d: %s", m.ID, notes),
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MalfunctionService) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Malfunction{}).
		Where("status = ?", models.MalfunctionActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active malfunctions: %w", err)
	}
	return count, nil
}
