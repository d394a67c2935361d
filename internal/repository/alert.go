package repository

import (
	"context"
	"fmt"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// AlertRepository SOS 报警仓库
// 同一份报警写入两处：patients/{id}/sosAlerts（权威）与 alertLogs（全局看板），两者不共享文档 ID
type AlertRepository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewAlertRepository 创建报警仓库
func NewAlertRepository(s store.DocumentStore, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		store:  s,
		logger: logger,
	}
}

// CreatePatientAlert 写入患者报警子集合
func (r *AlertRepository) CreatePatientAlert(ctx context.Context, alert *domain.SOSAlert) (string, error) {
	return r.create(ctx, PatientAlertsCollection(alert.PatientID), alert)
}

// CreateAlertLog 写入全局报警日志
func (r *AlertRepository) CreateAlertLog(ctx context.Context, alert *domain.SOSAlert) (string, error) {
	return r.create(ctx, CollectionAlertLogs, alert)
}

func (r *AlertRepository) create(ctx context.Context, collection string, alert *domain.SOSAlert) (string, error) {
	fields, err := store.ToFields(alert)
	if err != nil {
		return "", err
	}
	id, err := r.store.Create(ctx, collection, fields)
	if err != nil {
		return "", fmt.Errorf("failed to write alert to %s: %w", collection, err)
	}
	return id, nil
}

// GetPatientAlert 读取患者报警
func (r *AlertRepository) GetPatientAlert(ctx context.Context, patientID, alertID string) (*domain.SOSAlert, error) {
	doc, err := r.store.Get(ctx, PatientAlertsCollection(patientID), alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert %s: %w", alertID, err)
	}
	return decodeAlert(doc)
}

// ListAlertLogs 查询全局报警日志中某患者的报警
func (r *AlertRepository) ListAlertLogs(ctx context.Context, patientID string) ([]*domain.SOSAlert, error) {
	docs, err := r.store.Query(ctx, CollectionAlertLogs, store.Where("patientId", patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to query alert logs: %w", err)
	}
	alerts := make([]*domain.SOSAlert, 0, len(docs))
	for _, doc := range docs {
		alert, err := decodeAlert(doc)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func decodeAlert(doc *store.Document) (*domain.SOSAlert, error) {
	var alert domain.SOSAlert
	if err := doc.DataTo(&alert); err != nil {
		return nil, err
	}
	alert.AlertID = doc.ID
	return &alert, nil
}
