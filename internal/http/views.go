package httpapi

import "wisefido-sos/internal/domain"

// 文档 ID 不在持久化字段中，响应时单独带上

type reminderView struct {
	ID string `json:"id"`
	*domain.Reminder
}

type activityView struct {
	ID string `json:"id"`
	*domain.Activity
}

type alertView struct {
	ID string `json:"id"`
	*domain.SOSAlert
}

func toReminderViews(items []*domain.Reminder) []reminderView {
	out := make([]reminderView, 0, len(items))
	for _, r := range items {
		out = append(out, reminderView{ID: r.ReminderID, Reminder: r})
	}
	return out
}

func toActivityViews(items []*domain.Activity) []activityView {
	out := make([]activityView, 0, len(items))
	for _, a := range items {
		out = append(out, activityView{ID: a.ActivityID, Activity: a})
	}
	return out
}
