package httpapi

import (
	"fmt"
	"net/http"

	"wisefido-sos/internal/service"

	"go.uber.org/zap"
)

const remindersPrefix = "/api/v1/reminders/"

// ReminderHandler 单个提醒的读取、完成、软删除
type ReminderHandler struct {
	reminders service.ReminderService
	logger    *zap.Logger
}

// NewReminderHandler 创建提醒 Handler
func NewReminderHandler(reminders service.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
		logger:    logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *ReminderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, remindersPrefix)
	switch {
	// GET /api/v1/reminders/:id
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetReminder(w, r, parts[0])
	// DELETE /api/v1/reminders/:id
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.DeleteReminder(w, r, parts[0])
	// POST /api/v1/reminders/:id/complete
	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		h.CompleteReminder(w, r, parts[0])
	case len(parts) == 1, len(parts) == 2 && parts[1] == "complete":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request, reminderID string) {
	reminder, err := h.reminders.Get(r.Context(), reminderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reminderView{ID: reminder.ReminderID, Reminder: reminder}))
}

func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request, reminderID string) {
	if err := h.reminders.SoftDelete(r.Context(), reminderID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// CompleteReminder 患者 ID 取自 body.patientId，缺省为调用者本人
func (h *ReminderHandler) CompleteReminder(w http.ResponseWriter, r *http.Request, reminderID string) {
	var body struct {
		PatientID string `json:"patientId"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("invalid body: %v", err)))
		return
	}
	patientID := body.PatientID
	if patientID == "" {
		patientID = actorID(r)
	}
	if patientID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing X-User-Id"))
		return
	}

	reminder, err := h.reminders.Complete(r.Context(), reminderID, patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reminderView{ID: reminder.ReminderID, Reminder: reminder}))
}
