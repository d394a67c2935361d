package repository

import (
	"context"
	"fmt"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// ReminderRepository 提醒仓库
type ReminderRepository struct {
	store  store.DocumentStore
	logger *zap.Logger
}

// NewReminderRepository 创建提醒仓库
func NewReminderRepository(s store.DocumentStore, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{
		store:  s,
		logger: logger,
	}
}

// CreateReminder 新建提醒，createdAt 由存储层赋值
func (r *ReminderRepository) CreateReminder(ctx context.Context, reminder *domain.Reminder) (string, error) {
	fields, err := store.ToFields(reminder)
	if err != nil {
		return "", err
	}
	fields["createdAt"] = store.ServerTimestamp
	delete(fields, "completedAt")
	delete(fields, "deletedAt")

	id, err := r.store.Create(ctx, CollectionReminders, fields)
	if err != nil {
		return "", fmt.Errorf("failed to create reminder: %w", err)
	}
	return id, nil
}

// GetReminder 按 ID 读取（包括已软删除的记录）
func (r *ReminderRepository) GetReminder(ctx context.Context, reminderID string) (*domain.Reminder, error) {
	doc, err := r.store.Get(ctx, CollectionReminders, reminderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder %s: %w", reminderID, err)
	}
	return decodeReminder(doc)
}

// UpdateReminder 合并更新字段
func (r *ReminderRepository) UpdateReminder(ctx context.Context, reminderID string, fields map[string]any) error {
	if err := r.store.Update(ctx, CollectionReminders, reminderID, fields); err != nil {
		return fmt.Errorf("failed to update reminder %s: %w", reminderID, err)
	}
	return nil
}

// ListByPatient 查询患者的全部提醒（不过滤 isActive，不保证顺序）
func (r *ReminderRepository) ListByPatient(ctx context.Context, patientID string) ([]*domain.Reminder, error) {
	docs, err := r.store.Query(ctx, CollectionReminders, store.Where("patientId", patientID))
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders for patient %s: %w", patientID, err)
	}

	reminders := make([]*domain.Reminder, 0, len(docs))
	for _, doc := range docs {
		reminder, err := decodeReminder(doc)
		if err != nil {
			r.logger.Warn("Skipping malformed reminder", zap.String("reminder_id", doc.ID), zap.Error(err))
			continue
		}
		reminders = append(reminders, reminder)
	}
	return reminders, nil
}

func decodeReminder(doc *store.Document) (*domain.Reminder, error) {
	var reminder domain.Reminder
	if err := doc.DataTo(&reminder); err != nil {
		return nil, err
	}
	reminder.ReminderID = doc.ID
	return &reminder, nil
}
