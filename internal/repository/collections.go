package repository

import "fmt"

// 集合名（与移动端保持一致）
const (
	CollectionPatients          = "patients"
	CollectionReminders         = "reminders"
	CollectionActivities        = "activities"
	CollectionAlertLogs         = "alertLogs"
	CollectionCaregiverRelation = "patientCaregiverRelations"
)

// PatientAlertsCollection 患者 SOS 报警子集合 patients/{id}/sosAlerts
func PatientAlertsCollection(patientID string) string {
	return fmt.Sprintf("%s/%s/sosAlerts", CollectionPatients, patientID)
}
