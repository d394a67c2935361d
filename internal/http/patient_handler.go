package httpapi

import (
	"fmt"
	"net/http"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/service"

	"go.uber.org/zap"
)

const patientsPrefix = "/api/v1/patients/"

// PatientHandler 患者维度的接口：SOS、护理人员、提醒、活动
type PatientHandler struct {
	sos        service.SOSService
	caregivers service.CaregiverService
	reminders  service.ReminderService
	activities service.ActivityService
	logger     *zap.Logger
}

// NewPatientHandler 创建患者 Handler
func NewPatientHandler(
	sos service.SOSService,
	caregivers service.CaregiverService,
	reminders service.ReminderService,
	activities service.ActivityService,
	logger *zap.Logger,
) *PatientHandler {
	return &PatientHandler{
		sos:        sos,
		caregivers: caregivers,
		reminders:  reminders,
		activities: activities,
		logger:     logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *PatientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, patientsPrefix)
	if len(parts) < 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	patientID := patientIDFromPath(r, parts[0])
	if patientID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing X-User-Id"))
		return
	}

	switch {
	// POST /api/v1/patients/:id/sos
	case len(parts) == 2 && parts[1] == "sos" && r.Method == http.MethodPost:
		h.TriggerSOS(w, r, patientID)
	// GET /api/v1/patients/:id/caregivers
	case len(parts) == 2 && parts[1] == "caregivers" && r.Method == http.MethodGet:
		h.ListCaregivers(w, r, patientID)
	// GET /api/v1/patients/:id/reminders
	case len(parts) == 2 && parts[1] == "reminders" && r.Method == http.MethodGet:
		h.ListReminders(w, r, patientID)
	// POST /api/v1/patients/:id/reminders
	case len(parts) == 2 && parts[1] == "reminders" && r.Method == http.MethodPost:
		h.CreateReminder(w, r, patientID)
	// GET /api/v1/patients/:id/activities
	case len(parts) == 2 && parts[1] == "activities" && r.Method == http.MethodGet:
		h.ListActivities(w, r, patientID)
	// GET /api/v1/patients/:id/activities/export
	case len(parts) == 3 && parts[1] == "activities" && parts[2] == "export" && r.Method == http.MethodGet:
		h.ExportActivities(w, r, patientID)
	case len(parts) <= 3:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// TriggerSOS 触发 SOS；全局日志写入失败不影响响应
func (h *PatientHandler) TriggerSOS(w http.ResponseWriter, r *http.Request, patientID string) {
	res, err := h.sos.TriggerSOS(r.Context(), patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(map[string]any{
		"alertId": res.AlertID,
		"alert":   alertView{ID: res.AlertID, SOSAlert: res.Alert},
	}))
}

func (h *PatientHandler) ListCaregivers(w http.ResponseWriter, r *http.Request, patientID string) {
	ids, err := h.caregivers.ResolveCaregivers(r.Context(), patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"caregiverIds": ids}))
}

func (h *PatientHandler) ListReminders(w http.ResponseWriter, r *http.Request, patientID string) {
	items, err := h.reminders.ListActive(r.Context(), patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": toReminderViews(items), "total": len(items)}))
}

// createReminderBody 时间可用 "time"（HH:MM）或 hour/minute/period
type createReminderBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Time        string `json:"time"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	Period      string `json:"period"`
	Frequency   string `json:"frequency"`
	CaregiverID string `json:"caregiverId"`
}

func (h *PatientHandler) CreateReminder(w http.ResponseWriter, r *http.Request, patientID string) {
	var body createReminderBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("invalid body: %v", err)))
		return
	}
	caregiverID := body.CaregiverID
	if caregiverID == "" {
		caregiverID = actorID(r)
	}

	reminder, err := h.reminders.Create(r.Context(), service.CreateReminderRequest{
		PatientID:   patientID,
		CaregiverID: caregiverID,
		Title:       body.Title,
		Description: body.Description,
		Type:        domain.ReminderType(body.Type),
		Time:        body.Time,
		Hour:        body.Hour,
		Minute:      body.Minute,
		Period:      body.Period,
		Frequency:   body.Frequency,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(reminderView{ID: reminder.ReminderID, Reminder: reminder}))
}

func (h *PatientHandler) ListActivities(w http.ResponseWriter, r *http.Request, patientID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	items, err := h.activities.List(r.Context(), patientID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": toActivityViews(items), "total": len(items)}))
}

// ExportActivities 导出活动记录 Excel
func (h *PatientHandler) ExportActivities(w http.ResponseWriter, r *http.Request, patientID string) {
	items, err := h.activities.List(r.Context(), patientID, 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	excelData, err := GenerateActivityExport(items)
	if err != nil {
		h.logger.Error("GenerateActivityExport failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=activities-%s.xlsx", patientID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(excelData)
}
