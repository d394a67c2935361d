package service

import (
	"context"
	"strings"

	"wisefido-sos/internal/domain"

	"go.uber.org/zap"
)

// ActivityService 患者活动记录服务接口
type ActivityService interface {
	// Append 追加一条活动记录，存储失败直接返回，由调用方决定是否致命
	Append(ctx context.Context, patientID, activityType, title string, metadata map[string]any) (string, error)
	// List 未删除的活动，最新在前；limit <= 0 表示不限制
	List(ctx context.Context, patientID string, limit int) ([]*domain.Activity, error)
}

type activityService struct {
	repo   ActivityRepository
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo ActivityRepository, logger *zap.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger,
	}
}

func (s *activityService) Append(ctx context.Context, patientID, activityType, title string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(patientID) == "" {
		return "", invalidInput("patient_id is required")
	}
	if strings.TrimSpace(activityType) == "" {
		return "", invalidInput("activity type is required")
	}

	id, err := s.repo.CreateActivity(ctx, &domain.Activity{
		PatientID: patientID,
		Type:      activityType,
		Title:     title,
		Metadata:  metadata,
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Activity appended",
		zap.String("patient_id", patientID),
		zap.String("type", activityType),
		zap.String("activity_id", id),
	)
	return id, nil
}

func (s *activityService) List(ctx context.Context, patientID string, limit int) ([]*domain.Activity, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, invalidInput("patient_id is required")
	}
	activities, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}
