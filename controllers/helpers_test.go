package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"envmon/config"
	"envmon/middlewares"
	"envmon/models"
	"envmon/services"
	"envmon/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "controller-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router  *gin.Engine
	hub     *Hub
	users   *services.UserService
	sensors *services.SensorService
	alerts  *services.AlertService
	env     *services.EnvironmentalService
	tokens  map[models.Role]string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := config.OpenDatabase(config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	logger := zap.NewNop()
	thresholds := utils.DefaultThresholds()
	hub := NewHub(logger, nil)
	t.Cleanup(hub.Close)

	users := services.NewUserService(db, logger).WithHashCost(bcrypt.MinCost)
	sensors := services.NewSensorService(db, logger, 90*24*time.Hour, 0)
	maintenance := services.NewMaintenanceService(db, logger)
	malfunctions := services.NewMalfunctionService(db, logger)
	settings := services.NewSettingsService(db, logger)
	require.NoError(t, settings.Init(context.Background()))
	env := services.NewEnvironmentalService(db, logger, thresholds)
	alerts := services.NewAlertService(db, logger)
	readings := services.NewReadingService(env, sensors, settings, alerts, thresholds, utils.NewValidator(logger), hub, logger)
	dashboard := services.NewDashboardService(users, sensors, malfunctions, maintenance, alerts, env)

	app := &testApp{
		hub:     hub,
		users:   users,
		sensors: sensors,
		alerts:  alerts,
		env:     env,
		tokens:  map[models.Role]string{},
		router: NewRouter(RouterConfig{
			Logger:       logger,
			JWTSecret:    testSecret,
			TokenTTL:     time.Hour,
			Users:        users,
			Sensors:      sensors,
			Maintenance:  maintenance,
			Malfunctions: malfunctions,
			Settings:     settings,
			Environment:  env,
			Alerts:       alerts,
			Readings:     readings,
			Dashboard:    dashboard,
			Thresholds:   thresholds,
			Hub:          hub,
		}),
	}

	for name, role := range map[string]models.Role{
		"admin":     models.RoleAdministrator,
		"ops":       models.RoleOperationsManager,
		"scientist": models.RoleEnvironmentalScientist,
	} {
		user, err := users.Register(context.Background(), name, "password1", role)
		require.NoError(t, err)
		token, err := middlewares.IssueToken(testSecret, user, time.Hour)
		require.NoError(t, err)
		app.tokens[role] = token
	}
	return app
}

// do sends a request as role; an empty role sends no token.
func (a *testApp) do(t *testing.T, role models.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testApp) createSensor(t *testing.T, name string, dataType models.DataType, measurand string) models.Sensor {
	t.Helper()
	w := a.do(t, models.RoleOperationsManager, http.MethodPost, "/api/sensors", gin.H{
		"name":          name,
		"type":          dataType,
		"measurand":     measurand,
		"latitude":      51.5,
		"longitude":     -0.12,
		"location_name": "Central",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Sensor](t, w)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
