package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/metrics"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

const defaultFrequency = "daily"

// ReminderService 提醒生命周期服务接口
// 状态：Active-Pending → Completed；Active-Pending/Completed → Deleted（软删除）
type ReminderService interface {
	Create(ctx context.Context, req CreateReminderRequest) (*domain.Reminder, error)
	// Complete 幂等：已完成的提醒直接返回，不再写入也不再追加活动
	Complete(ctx context.Context, reminderID, patientID string) (*domain.Reminder, error)
	// SoftDelete 重复删除是空操作
	SoftDelete(ctx context.Context, reminderID string) error
	// ListActive 只返回 isActive != false 的提醒，按时间升序
	ListActive(ctx context.Context, patientID string) ([]*domain.Reminder, error)
	// Get 按 ID 读取，包括已删除的提醒
	Get(ctx context.Context, reminderID string) (*domain.Reminder, error)
}

// CreateReminderRequest 创建提醒请求
// 时间二选一：Time（"HH:MM" 24 小时制）或 Hour/Minute/Period（12 小时制）
type CreateReminderRequest struct {
	PatientID   string
	CaregiverID string // 创建者
	Title       string
	Description string
	Type        domain.ReminderType // 为空时为 other
	Time        string
	Hour        int
	Minute      int
	Period      string
	Frequency   string // 为空时为 daily
}

type reminderService struct {
	repo       ReminderRepository
	activities ActivityService
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(repo ReminderRepository, activities ActivityService, m *metrics.Metrics, logger *zap.Logger) ReminderService {
	return &reminderService{
		repo:       repo,
		activities: activities,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// resolveTime 返回存储用的 "HH:MM" 与展示时间
func (req CreateReminderRequest) resolveTime() (string, string, error) {
	var (
		stored string
		err    error
	)
	if strings.TrimSpace(req.Time) != "" {
		stored, err = domain.NormalizeTime24(req.Time)
	} else {
		stored, err = domain.To24Hour(req.Hour, req.Minute, req.Period)
	}
	if err != nil {
		return "", "", err
	}
	display, err := domain.DisplayTime(stored)
	if err != nil {
		return "", "", err
	}
	return stored, display, nil
}

func (s *reminderService) Create(ctx context.Context, req CreateReminderRequest) (*domain.Reminder, error) {
	// 参数验证（任何写入之前）
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, invalidInput("patient_id is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidInput("title is required")
	}
	reminderType := req.Type
	if reminderType == "" {
		reminderType = domain.ReminderOther
	}
	if !reminderType.Valid() {
		return nil, invalidInput("unknown reminder type %q", req.Type)
	}
	stored, display, err := req.resolveTime()
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	frequency := strings.TrimSpace(req.Frequency)
	if frequency == "" {
		frequency = defaultFrequency
	}

	active := true
	reminder := &domain.Reminder{
		PatientID:   req.PatientID,
		CaregiverID: req.CaregiverID,
		Title:       title,
		Description: req.Description,
		Type:        reminderType,
		Time:        stored,
		DisplayTime: display,
		Frequency:   frequency,
		IsActive:    &active,
		IsCompleted: false,
	}

	id, err := s.repo.CreateReminder(ctx, reminder)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReminderTransition(metrics.TransitionCreated)

	s.logger.Info("Reminder created",
		zap.String("reminder_id", id),
		zap.String("patient_id", req.PatientID),
		zap.String("time", stored),
	)

	created, err := s.repo.GetReminder(ctx, id)
	if err != nil {
		// 写入已成功，读回失败时返回本地副本
		s.logger.Warn("Failed to read back created reminder", zap.String("reminder_id", id), zap.Error(err))
		reminder.ReminderID = id
		reminder.CreatedAt = s.now().UTC()
		return reminder, nil
	}
	return created, nil
}

func (s *reminderService) Complete(ctx context.Context, reminderID, patientID string) (*domain.Reminder, error) {
	if strings.TrimSpace(reminderID) == "" {
		return nil, invalidInput("reminder_id is required")
	}

	reminder, err := s.get(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	if patientID != "" && reminder.PatientID != patientID {
		return nil, fmt.Errorf("%w: %s", ErrReminderNotFound, reminderID)
	}
	if !reminder.Active() {
		return nil, fmt.Errorf("%w: %s", ErrReminderInactive, reminderID)
	}
	if reminder.IsCompleted {
		s.metrics.RecordReminderTransition(metrics.TransitionNoop)
		s.logger.Debug("Reminder already completed", zap.String("reminder_id", reminderID))
		return reminder, nil
	}

	if err := s.repo.UpdateReminder(ctx, reminderID, map[string]any{
		"isCompleted": true,
		"completedAt": store.ServerTimestamp,
	}); err != nil {
		return nil, err
	}
	s.metrics.RecordReminderTransition(metrics.TransitionCompleted)

	// 活动记录失败不回滚完成状态
	if _, err := s.activities.Append(ctx, reminder.PatientID, domain.ActivityReminderCompleted,
		fmt.Sprintf("Completed: %s", reminder.Title),
		map[string]any{
			"reminderId":    reminderID,
			"reminderTitle": reminder.Title,
		},
	); err != nil {
		s.logger.Error("Failed to log reminder completion",
			zap.String("reminder_id", reminderID),
			zap.Error(err),
		)
	}

	completed, err := s.repo.GetReminder(ctx, reminderID)
	if err != nil {
		s.logger.Warn("Failed to read back completed reminder", zap.String("reminder_id", reminderID), zap.Error(err))
		now := s.now().UTC()
		reminder.IsCompleted = true
		reminder.CompletedAt = &now
		return reminder, nil
	}
	return completed, nil
}

func (s *reminderService) SoftDelete(ctx context.Context, reminderID string) error {
	if strings.TrimSpace(reminderID) == "" {
		return invalidInput("reminder_id is required")
	}

	reminder, err := s.get(ctx, reminderID)
	if err != nil {
		return err
	}
	if !reminder.Active() {
		s.metrics.RecordReminderTransition(metrics.TransitionNoop)
		return nil
	}

	if err := s.repo.UpdateReminder(ctx, reminderID, map[string]any{
		"isActive":  false,
		"deletedAt": store.ServerTimestamp,
	}); err != nil {
		return err
	}
	s.metrics.RecordReminderTransition(metrics.TransitionDeleted)

	s.logger.Info("Reminder soft-deleted", zap.String("reminder_id", reminderID))
	return nil
}

func (s *reminderService) ListActive(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, invalidInput("patient_id is required")
	}

	all, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.Reminder, 0, len(all))
	for _, r := range all {
		if r.Active() {
			active = append(active, r)
		}
	}
	// 存储层不保证该过滤组合下的顺序，在这里排序
	sort.SliceStable(active, func(i, j int) bool {
		mi, mj := minuteOfDay(active[i].Time), minuteOfDay(active[j].Time)
		if mi != mj {
			return mi < mj
		}
		return active[i].Title < active[j].Title
	})
	return active, nil
}

func (s *reminderService) Get(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	if strings.TrimSpace(reminderID) == "" {
		return nil, invalidInput("reminder_id is required")
	}
	return s.get(ctx, reminderID)
}

func (s *reminderService) get(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	reminder, err := s.repo.GetReminder(ctx, reminderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReminderNotFound, reminderID)
		}
		return nil, err
	}
	return reminder, nil
}

// minuteOfDay 无法解析的时间排在最后
func minuteOfDay(s string) int {
	h, m, err := domain.ParseTime24(s)
	if err != nil {
		return 24 * 60
	}
	return h*60 + m
}
