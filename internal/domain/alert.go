package domain

import "time"

// AlertStatus SOS 报警状态（resolved 由外部流程设置）
type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

const (
	AlertTypeSOS     = "sos"
	SeverityCritical = "critical"
)

// SOSAlert SOS 报警（写入 patients/{id}/sosAlerts 与 alertLogs）
// PatientName 与 CaregiverIDs 是触发时刻的快照，创建后不再修改
type SOSAlert struct {
	AlertID      string      `json:"-"`
	PatientID    string      `json:"patientId"`
	PatientName  string      `json:"patientName"`
	Timestamp    time.Time   `json:"timestamp"`
	Status       AlertStatus `json:"status"`
	Type         string      `json:"type"`
	Severity     string      `json:"severity"`
	Message      string      `json:"message"`
	CaregiverIDs []string    `json:"caregiverIds"`
	Location     *Location   `json:"location,omitempty"`
}
