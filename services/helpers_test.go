package services

import (
	"context"
	"testing"
	"time"

	"envmon/config"
	"envmon/models"
	"envmon/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(kind string, _ any) {
	p.events = append(p.events, kind)
}

type testServices struct {
	db           *gorm.DB
	sensors      *SensorService
	maintenance  *MaintenanceService
	malfunctions *MalfunctionService
	settings     *SettingsService
	users        *UserService
	env          *EnvironmentalService
	alerts       *AlertService
	readings     *ReadingService
	dashboard    *DashboardService
	publisher    *recordingPublisher
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := setupTestDB(t)
	logger := zap.NewNop()
	thresholds := utils.DefaultThresholds()

	ts := &testServices{
		db:           db,
		sensors:      NewSensorService(db, logger, 90*24*time.Hour, 0),
		maintenance:  NewMaintenanceService(db, logger),
		malfunctions: NewMalfunctionService(db, logger),
		settings:     NewSettingsService(db, logger),
		users:        NewUserService(db, logger).WithHashCost(bcrypt.MinCost),
		env:          NewEnvironmentalService(db, logger, thresholds),
		alerts:       NewAlertService(db, logger),
		publisher:    &recordingPublisher{},
	}
	require.NoError(t, ts.settings.Init(context.Background()))
	ts.readings = NewReadingService(ts.env, ts.sensors, ts.settings, ts.alerts, thresholds,
		utils.NewValidator(logger), ts.publisher, logger)
	ts.dashboard = NewDashboardService(ts.users, ts.sensors, ts.malfunctions, ts.maintenance, ts.alerts, ts.env)
	return ts
}

func createSensor(t *testing.T, s *SensorService, name string, dataType models.DataType, measurand string) *models.Sensor {
	t.Helper()
	sensor := &models.Sensor{
		Name:         name,
		Type:         dataType,
		Measurand:    measurand,
		Latitude:     51.5072,
		Longitude:    -0.1276,
		LocationName: "Central",
	}
	require.NoError(t, s.Create(context.Background(), sensor))
	return sensor
}
