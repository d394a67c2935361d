package domain

import "time"

// 活动类型
const (
	ActivityReminderCompleted = "reminder_completed"
	ActivitySOSTriggered      = "sos_triggered"
)

// Activity 患者活动记录（对应 activities），只追加不修改
type Activity struct {
	ActivityID string         `json:"-"`
	PatientID  string         `json:"patientId"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	IsDeleted  bool           `json:"isDeleted"`
}
