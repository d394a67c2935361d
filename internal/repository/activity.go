package repository

import (
	"context"
	"fmt"
	"sort"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// ActivityRepository 活动记录仓库（只追加）
type ActivityRepository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewActivityRepository 创建活动记录仓库
func NewActivityRepository(s store.DocumentStore, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{
		store:  s,
		logger: logger,
	}
}

// CreateActivity 追加活动记录，timestamp 由存储层赋值，isDeleted 固定为 false
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *domain.Activity) (string, error) {
	fields := map[string]any{
		"patientId": activity.PatientID,
		"type":      activity.Type,
		"title":     activity.Title,
		"timestamp": store.ServerTimestamp,
		"isDeleted": false,
	}
	if len(activity.Metadata) > 0 {
		fields["metadata"] = activity.Metadata
	}

	id, err := r.store.Create(ctx, CollectionActivities, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create activity: %w", err)
	}
	return id, nil
}

// ListByPatient 查询未删除的活动，按时间倒序
func (r *ActivityRepository) ListByPatient(ctx context.Context, patientID string) ([]*domain.Activity, error) {
	docs, err := r.store.Query(ctx, CollectionActivities,
		store.Where("patientId", patientID),
		store.Where("isDeleted", false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities for patient %s: %w", patientID, err)
	}

	activities := make([]*domain.Activity, 0, len(docs))
	for _, doc := range docs {
		var a domain.Activity
		if err := doc.DataTo(&a); err != nil {
			r.logger.Warn("Skipping malformed activity", zap.String("activity_id", doc.ID), zap.Error(err))
			continue
		}
		a.ActivityID = doc.ID
		activities = append(activities, &a)
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	return activities, nil
}
