package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/location"
	"wisefido-sos/internal/metrics"
	"wisefido-sos/internal/repository"
	"wisefido-sos/internal/service"
	"wisefido-sos/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type apiEnv struct {
	router   *Router
	patients *repository.PatientRepository
	rels     *repository.CaregiverRelationRepository
	alerts   *repository.AlertRepository
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	logger := zap.NewNop()
	s := store.NewMemoryDocumentStore()
	m := metrics.NewMetrics()

	patients := repository.NewPatientRepository(s, logger)
	rels := repository.NewCaregiverRelationRepository(s, logger)
	alerts := repository.NewAlertRepository(s, logger)

	activities := service.NewActivityService(repository.NewActivityRepository(s, logger), logger)
	caregivers := service.NewCaregiverService(patients, rels, logger)
	reminders := service.NewReminderService(repository.NewReminderRepository(s, logger), activities, m, logger)
	acquirer := location.NewAcquirer(location.ProviderFunc(
		func(ctx context.Context, target string, opts location.Options, cb location.Callback) func() {
			cb(&domain.Location{Latitude: 37.7749, Longitude: -122.4194}, nil)
			return func() {}
		}), logger, 0)
	sos := service.NewSOSService(patients, caregivers, alerts, activities, acquirer, service.SOSConfig{}, m, logger)

	router := NewRouter(logger)
	router.RegisterPatientRoutes(NewPatientHandler(sos, caregivers, reminders, activities, logger))
	router.RegisterReminderRoutes(NewReminderHandler(reminders, logger))
	router.RegisterSettingsRoutes(NewSettingsHandler(domain.DisplaySettings{TextScale: 1.25, HighContrast: true}))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoutes(m.Handler())

	return &apiEnv{router: router, patients: patients, rels: rels, alerts: alerts}
}

func (e *apiEnv) addPatient(t *testing.T, p *domain.Patient) {
	t.Helper()
	require.NoError(t, e.patients.SavePatient(context.Background(), p))
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (e *apiEnv) do(t *testing.T, method, path, actor string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if actor != "" {
		req.Header.Set("X-User-Id", actor)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestTriggerSOS_ForCurrentPatient(t *testing.T) {
	e := setupAPI(t)
	e.addPatient(t, &domain.Patient{PatientID: "p1", FullName: "Jane Doe"})
	_, err := e.rels.CreateRelation(context.Background(), &domain.CaregiverRelation{PatientID: "p1", CaregiverID: "c1", Status: domain.RelationActive})
	require.NoError(t, err)

	rec, env := e.do(t, http.MethodPost, "/api/v1/patients/me/sos", "p1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ResultSuccess, env.Code)

	var res struct {
		AlertID string `json:"alertId"`
		Alert   struct {
			ID           string           `json:"id"`
			PatientID    string           `json:"patientId"`
			PatientName  string           `json:"patientName"`
			Status       string           `json:"status"`
			Severity     string           `json:"severity"`
			Message      string           `json:"message"`
			CaregiverIDs []string         `json:"caregiverIds"`
			Location     *domain.Location `json:"location"`
		} `json:"alert"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	require.NotEmpty(t, res.AlertID)
	assert.Equal(t, res.AlertID, res.Alert.ID)
	assert.Equal(t, "p1", res.Alert.PatientID)
	assert.Equal(t, "Jane Doe", res.Alert.PatientName)
	assert.Equal(t, "active", res.Alert.Status)
	assert.Equal(t, "critical", res.Alert.Severity)
	assert.Equal(t, "Jane Doe needs immediate help. SOS alert triggered.", res.Alert.Message)
	assert.Equal(t, []string{"c1"}, res.Alert.CaregiverIDs)
	require.NotNil(t, res.Alert.Location)
	assert.Equal(t, 37.7749, res.Alert.Location.Latitude)

	stored, err := e.alerts.GetPatientAlert(context.Background(), "p1", res.AlertID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", stored.PatientName)

	logs, err := e.alerts.ListAlertLogs(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestTriggerSOS_Errors(t *testing.T) {
	e := setupAPI(t)

	rec, env := e.do(t, http.MethodPost, "/api/v1/patients/ghost/sos", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ResultError, env.Code)

	// "me" 需要调用者身份
	rec, _ = e.do(t, http.MethodPost, "/api/v1/patients/me/sos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/patients/p1/sos", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/patients/p1/unknown/a/b", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCaregivers(t *testing.T) {
	e := setupAPI(t)
	e.addPatient(t, &domain.Patient{PatientID: "p1", AssignedCaregivers: []string{"c1", "c1", " "}})

	rec, env := e.do(t, http.MethodGet, "/api/v1/patients/p1/caregivers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		CaregiverIDs []string `json:"caregiverIds"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, []string{"c1"}, res.CaregiverIDs)
}

func TestReminderLifecycle(t *testing.T) {
	e := setupAPI(t)

	rec, env := e.do(t, http.MethodPost, "/api/v1/patients/p1/reminders", "c9", map[string]any{
		"title":  "Take blood pressure pill",
		"type":   "medication",
		"hour":   2,
		"minute": 30,
		"period": "PM",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID          string `json:"id"`
		CaregiverID string `json:"caregiverId"`
		Time        string `json:"time"`
		DisplayTime string `json:"displayTime"`
		Frequency   string `json:"frequency"`
		IsCompleted bool   `json:"isCompleted"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "c9", created.CaregiverID)
	assert.Equal(t, "14:30", created.Time)
	assert.Equal(t, "2:30 PM", created.DisplayTime)
	assert.Equal(t, "daily", created.Frequency)

	rec, env = e.do(t, http.MethodGet, "/api/v1/patients/p1/reminders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Equal(t, 1, list.Total)

	// 患者本人完成提醒
	rec, env = e.do(t, http.MethodPost, "/api/v1/reminders/"+created.ID+"/complete", "p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var completed struct {
		IsCompleted bool    `json:"isCompleted"`
		CompletedAt *string `json:"completedAt"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &completed))
	assert.True(t, completed.IsCompleted)
	assert.NotNil(t, completed.CompletedAt)

	// 其他患者看不到该提醒
	rec, _ = e.do(t, http.MethodPost, "/api/v1/reminders/"+created.ID+"/complete", "", map[string]string{"patientId": "p2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, http.MethodDelete, "/api/v1/reminders/"+created.ID, "c9", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = e.do(t, http.MethodGet, "/api/v1/patients/p1/reminders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Equal(t, 0, list.Total)

	// 软删除后仍可按 ID 读取
	rec, env = e.do(t, http.MethodGet, "/api/v1/reminders/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched struct {
		IsActive *bool `json:"isActive"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &fetched))
	require.NotNil(t, fetched.IsActive)
	assert.False(t, *fetched.IsActive)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/reminders/"+created.ID+"/complete", "p1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReminder_Validation(t *testing.T) {
	e := setupAPI(t)

	rec, env := e.do(t, http.MethodPost, "/api/v1/patients/p1/reminders", "c1", map[string]any{
		"title": "Walk",
		"time":  "25:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ResultError, env.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/p1/reminders", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	e.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/reminders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivities_ListAndExport(t *testing.T) {
	e := setupAPI(t)
	e.addPatient(t, &domain.Patient{PatientID: "p1", Name: "Jane"})

	rec, _ := e.do(t, http.MethodPost, "/api/v1/patients/p1/sos", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := e.do(t, http.MethodGet, "/api/v1/patients/p1/activities?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Title string `json:"title"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, domain.ActivitySOSTriggered, list.Items[0].Type)
	assert.NotEmpty(t, list.Items[0].ID)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/patients/p1/activities/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "activities-p1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(activitySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ActivityExportHeader, rows[0])
	assert.Equal(t, domain.ActivitySOSTriggered, rows[1][1])
}

func TestGenerateActivityExport_Empty(t *testing.T) {
	data, err := GenerateActivityExport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(activitySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, []string{activitySheet}, f.GetSheetList())
}

func TestDisplaySettings(t *testing.T) {
	e := setupAPI(t)

	rec, env := e.do(t, http.MethodGet, "/api/v1/settings/display", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings domain.DisplaySettings
	require.NoError(t, json.Unmarshal(env.Result, &settings))
	assert.Equal(t, 1.25, settings.TextScale)
	assert.True(t, settings.HighContrast)

	rec, _ = e.do(t, http.MethodPut, "/api/v1/settings/display", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := setupAPI(t)
	e.addPatient(t, &domain.Patient{PatientID: "p1"})

	rec, _ := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/patients/p1/sos", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	raw := httptest.NewRecorder()
	e.router.ServeHTTP(raw, req)
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Contains(t, raw.Body.String(), `sos_triggers_total{result="success"} 1`)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"p1", "reminders"}, splitPath("/api/v1/patients/p1/reminders/", patientsPrefix))
	assert.Nil(t, splitPath("/api/v1/patients/", patientsPrefix))
}
