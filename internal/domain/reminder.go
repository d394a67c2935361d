package domain

import "time"

// ReminderType 提醒类型
type ReminderType string

const (
	ReminderMedication  ReminderType = "medication"
	ReminderAppointment ReminderType = "appointment"
	ReminderActivity    ReminderType = "activity"
	ReminderOther       ReminderType = "other"
)

// Valid 是否为已知类型
func (t ReminderType) Valid() bool {
	switch t {
	case ReminderMedication, ReminderAppointment, ReminderActivity, ReminderOther:
		return true
	}
	return false
}

// Reminder 患者提醒（对应 reminders）
// IsActive=false 为软删除：不出现在任何列表中，但可按 ID 读取用于审计
type Reminder struct {
	ReminderID  string       `json:"-"`
	PatientID   string       `json:"patientId"`
	CaregiverID string       `json:"caregiverId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        ReminderType `json:"type"`
	Time        string       `json:"time"`        // HH:MM 24 小时制
	DisplayTime string       `json:"displayTime"` // 展示用，如 "2:30 PM"
	Frequency   string       `json:"frequency"`
	IsActive    *bool        `json:"isActive,omitempty"`
	IsCompleted bool         `json:"isCompleted"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	DeletedAt   *time.Time   `json:"deletedAt,omitempty"`
}

// Active 缺省 isActive 视为有效，只有显式 false 才算删除
func (r *Reminder) Active() bool {
	return r.IsActive == nil || *r.IsActive
}
