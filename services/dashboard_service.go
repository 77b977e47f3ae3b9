package services

import (
	"context"
	"fmt"
	"time"

	"envmon/analysis"
	"envmon/models"
)

// TrendWindow is the span of data the scientist dashboard analyses.
const TrendWindow = 24 * time.Hour

// dashboardTrends are the headline metrics summarised per data type.
var dashboardTrends = []struct {
	DataType models.DataType
	Metric   string
}{
	{models.DataTypeAir, "pm2_5"},
	{models.DataTypeWater, "ph"},
	{models.DataTypeWeather, "temperature"},
}

type MetricTrend struct {
	DataType models.DataType `json:"data_type"`
	Metric   string          `json:"metric"`
	Report   analysis.Report `json:"report"`
}

// Dashboard carries the sections relevant to one role; sections for other
// roles are left empty.
type Dashboard struct {
	Role        models.Role `json:"role"`
	GeneratedAt time.Time   `json:"generated_at"`
	OpenAlerts  int64       `json:"open_alerts"`

	UsersByRole        map[models.Role]int64         `json:"users_by_role,omitempty"`
	SensorsByStatus    map[models.SensorStatus]int64 `json:"sensors_by_status,omitempty"`
	ActiveMalfunctions *int64                        `json:"active_malfunctions,omitempty"`
	RecentAlerts       []models.SensorAlert          `json:"recent_alerts,omitempty"`

	UpcomingMaintenance []models.MaintenanceSchedule `json:"upcoming_maintenance,omitempty"`
	CalibrationDue      []models.Sensor              `json:"calibration_due,omitempty"`

	LatestReadings map[models.DataType][]models.EnvironmentalDataPoint `json:"latest_readings,omitempty"`
	Trends         []MetricTrend                                       `json:"trends,omitempty"`
}

type DashboardService struct {
	users        *UserService
	sensors      *SensorService
	malfunctions *MalfunctionService
	maintenance  *MaintenanceService
	alerts       *AlertService
	env          *EnvironmentalService
	now          func() time.Time
}

func NewDashboardService(
	users *UserService,
	sensors *SensorService,
	malfunctions *MalfunctionService,
	maintenance *MaintenanceService,
	alerts *AlertService,
	env *EnvironmentalService,
) *DashboardService {
	return &DashboardService{
		users:        users,
		sensors:      sensors,
		malfunctions: malfunctions,
		maintenance:  maintenance,
		alerts:       alerts,
		env:          env,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Build assembles the dashboard for a role.
func (s *DashboardService) Build(ctx context.Context, role models.Role) (*Dashboard, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	d := &Dashboard{Role: role, GeneratedAt: s.now()}
	var err error
	if d.OpenAlerts, err = s.alerts.CountOpen(ctx); err != nil {
		return nil, err
	}

	switch role {
	case models.RoleAdministrator:
		if d.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
			return nil, err
		}
		if err := s.fleet(ctx, d); err != nil {
			return nil, err
		}
		if d.RecentAlerts, err = s.alerts.List(ctx, AlertFilter{Limit: 10}); err != nil {
			return nil, err
		}

	case models.RoleOperationsManager:
		if err := s.fleet(ctx, d); err != nil {
			return nil, err
		}
		if d.UpcomingMaintenance, err = s.maintenance.Upcoming(ctx, 7*24*time.Hour); err != nil {
			return nil, err
		}
		if d.CalibrationDue, err = s.sensors.DueForCalibration(ctx, d.GeneratedAt); err != nil {
			return nil, err
		}

	case models.RoleEnvironmentalScientist:
		d.LatestReadings = map[models.DataType][]models.EnvironmentalDataPoint{}
		for _, dt := range []models.DataType{models.DataTypeAir, models.DataTypeWater, models.DataTypeWeather} {
			points, err := s.env.Latest(ctx, dt)
			if err != nil {
				return nil, err
			}
			if len(points) > 0 {
				d.LatestReadings[dt] = points
			}
		}
		if d.Trends, err = s.trends(ctx, d.GeneratedAt); err != nil {
			return nil, err
		}
		if d.RecentAlerts, err = s.alerts.List(ctx, AlertFilter{UnacknowledgedOnly: true, Limit: 10}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *DashboardService) fleet(ctx context.Context, d *Dashboard) error {
	var err error
	if d.SensorsByStatus, err = s.sensors.CountByStatus(ctx); err != nil {
		return err
	}
	active, err := s.malfunctions.CountActive(ctx)
	if err != nil {
		return err
	}
	d.ActiveMalfunctions = &active
	return nil
}

func (s *DashboardService) trends(ctx context.Context, now time.Time) ([]MetricTrend, error) {
	from := now.Add(-TrendWindow)
	out := make([]MetricTrend, 0, len(dashboardTrends))
	for _, t := range dashboardTrends {
		points, err := s.env.History(ctx, HistoryQuery{DataType: t.DataType, Metric: t.Metric, From: &from, To: &now})
		if err != nil {
			return nil, err
		}
		var limit *float64
		if m, ok := s.env.thresholds.Lookup(t.DataType, t.Metric); ok {
			limit = m.Bounds.Max
		}
		out = append(out, MetricTrend{
			DataType: t.DataType,
			Metric:   t.Metric,
			Report:   analysis.Analyze(Samples(points), limit),
		})
	}
	return out, nil
}

// Samples converts data points for the trend analyzer.
func Samples(points []models.EnvironmentalDataPoint) []analysis.Sample {
	out := make([]analysis.Sample, len(points))
	for i, p := range points {
		out[i] = analysis.Sample{Timestamp: p.Timestamp, Value: p.Value}
	}
	return out
}
