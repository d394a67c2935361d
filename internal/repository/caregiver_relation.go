package repository

import (
	"context"
	"fmt"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// CaregiverRelationRepository 患者-护理人员关系仓库
type CaregiverRelationRepository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewCaregiverRelationRepository 创建关系仓库
func NewCaregiverRelationRepository(s store.DocumentStore, logger *zap.Logger) *CaregiverRelationRepository {
	return &CaregiverRelationRepository{
		store:  s,
		logger: logger,
	}
}

// ListActiveRelations 查询患者的 active 关系
func (r *CaregiverRelationRepository) ListActiveRelations(ctx context.Context, patientID string) ([]*domain.CaregiverRelation, error) {
	docs, err := r.store.Query(ctx, CollectionCaregiverRelation,
		store.Where("patientId", patientID),
		store.Where("status", string(domain.RelationActive)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query caregiver relations for patient %s: %w", patientID, err)
	}

	relations := make([]*domain.CaregiverRelation, 0, len(docs))
	for _, doc := range docs {
		var rel domain.CaregiverRelation
		if err := doc.DataTo(&rel); err != nil {
			r.logger.Warn("Skipping malformed caregiver relation",
				zap.String("relation_id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		rel.RelationID = doc.ID
		relations = append(relations, &rel)
	}
	return relations, nil
}

// CreateRelation 新建关系
func (r *CaregiverRelationRepository) CreateRelation(ctx context.Context, rel *domain.CaregiverRelation) (string, error) {
	fields, err := store.ToFields(rel)
	if err != nil {
		return "", err
	}
	id, err := r.store.Create(ctx, CollectionCaregiverRelation, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create caregiver relation: %w", err)
	}
	return id, nil
}
