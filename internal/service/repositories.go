package service

import (
	"context"

	"wisefido-sos/internal/domain"
)

// 服务依赖的仓库能力（由 internal/repository 实现）

type PatientReader interface {
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)
}

type RelationReader interface {
	ListActiveRelations(ctx context.Context, patientID string) ([]*domain.CaregiverRelation, error)
}

type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *domain.Activity) (string, error)
	ListByPatient(ctx context.Context, patientID string) ([]*domain.Activity, error)
}

type ReminderRepository interface {
	CreateReminder(ctx context.Context, reminder *domain.Reminder) (string, error)
	GetReminder(ctx context.Context, reminderID string) (*domain.Reminder, error)
	UpdateReminder(ctx context.Context, reminderID string, fields map[string]any) error
	ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error)
}

type AlertWriter interface {
	CreatePatientAlert(ctx context.Context, alert *domain.SOSAlert) (string, error)
	CreateAlertLog(ctx context.Context, alert *domain.SOSAlert) (string, error)
}
