package repository

import (
	"context"
	"fmt"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// PatientRepository 患者仓库（核心只读，Save 供建档与测试使用）
type PatientRepository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewPatientRepository 创建患者仓库
func NewPatientRepository(s store.DocumentStore, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		store:  s,
		logger: logger,
	}
}

// GetPatient 读取患者，不存在时返回包装的 store.ErrNotFound
func (r *PatientRepository) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	doc, err := r.store.Get(ctx, CollectionPatients, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient %s: %w", patientID, err)
	}

	var patient domain.Patient
	if err := doc.DataTo(&patient); err != nil {
		return nil, err
	}
	patient.PatientID = doc.ID
	return &patient, nil
}

// SavePatient 写入患者文档
func (r *PatientRepository) SavePatient(ctx context.Context, patient *domain.Patient) error {
	fields, err := store.ToFields(patient)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, CollectionPatients, patient.PatientID, fields); err != nil {
		return fmt.Errorf("failed to save patient %s: %w", patient.PatientID, err)
	}
	return nil
}
