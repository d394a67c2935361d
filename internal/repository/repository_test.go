package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupStore() (*store.MemoryDocumentStore, *testClock) {
	clock := &testClock{now: time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)}
	seq := 0
	s := store.NewMemoryDocumentStore(
		store.WithClock(clock.Now),
		store.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return s, clock
}

func TestPatientRepository_SaveAndGet(t *testing.T) {
	s, _ := setupStore()
	repo := NewPatientRepository(s, zap.NewNop())
	ctx := context.Background()

	no := false
	require.NoError(t, repo.SavePatient(ctx, &domain.Patient{
		PatientID:          "p1",
		FullName:           "Jane Doe",
		AssignedCaregivers: []string{"c1"},
		SOSSettings:        &domain.SOSSettings{EnableSOS: true, SendLocation: &no},
	}))

	p, err := repo.GetPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.PatientID)
	assert.Equal(t, "Jane Doe", p.FullName)
	assert.Equal(t, []string{"c1"}, p.AssignedCaregivers)
	assert.False(t, p.AllowsLocation())

	_, err = repo.GetPatient(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = repo.GetPatient(ctx, "")
	assert.Error(t, err)
}

func TestCaregiverRelationRepository_ListActiveRelations(t *testing.T) {
	s, clock := setupStore()
	repo := NewCaregiverRelationRepository(s, zap.NewNop())
	ctx := context.Background()

	for _, rel := range []domain.CaregiverRelation{
		{PatientID: "p1", CaregiverID: "c1", Status: domain.RelationActive},
		{PatientID: "p1", CaregiverID: "c2", Status: domain.RelationInactive},
		{PatientID: "p1", CaregiverID: "c3", Status: domain.RelationPending},
		{PatientID: "p2", CaregiverID: "c4", Status: domain.RelationActive},
		{PatientID: "p1", CaregiverID: "c5", Status: domain.RelationActive},
	} {
		rel := rel
		clock.Advance(time.Second)
		_, err := repo.CreateRelation(ctx, &rel)
		require.NoError(t, err)
	}

	rels, err := repo.ListActiveRelations(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "c1", rels[0].CaregiverID)
	assert.Equal(t, "c5", rels[1].CaregiverID)
	assert.NotEmpty(t, rels[0].RelationID)
}

func TestReminderRepository_Lifecycle(t *testing.T) {
	s, clock := setupStore()
	repo := NewReminderRepository(s, zap.NewNop())
	ctx := context.Background()

	active := true
	id, err := repo.CreateReminder(ctx, &domain.Reminder{
		PatientID: "p1",
		Title:     "Blood pressure pill",
		Type:      domain.ReminderMedication,
		Time:      "08:00",
		Frequency: "daily",
		IsActive:  &active,
	})
	require.NoError(t, err)

	r, err := repo.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, r.ReminderID)
	assert.True(t, r.Active())
	assert.False(t, r.IsCompleted)
	assert.Nil(t, r.CompletedAt)
	assert.True(t, clock.now.Equal(r.CreatedAt))

	clock.Advance(time.Hour)
	require.NoError(t, repo.UpdateReminder(ctx, id, map[string]any{
		"isActive":  false,
		"deletedAt": store.ServerTimestamp,
	}))

	r, err = repo.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.Active())
	require.NotNil(t, r.DeletedAt)
	assert.True(t, clock.now.Equal(*r.DeletedAt))

	list, err := repo.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = repo.UpdateReminder(ctx, "missing", map[string]any{"isActive": false})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestActivityRepository_AppendAndList(t *testing.T) {
	s, clock := setupStore()
	repo := NewActivityRepository(s, zap.NewNop())
	ctx := context.Background()

	for i, title := range []string{"first", "second", "third"} {
		clock.Advance(time.Minute)
		_, err := repo.CreateActivity(ctx, &domain.Activity{
			PatientID: "p1",
			Type:      domain.ActivityReminderCompleted,
			Title:     title,
			Metadata:  map[string]any{"index": i},
			IsDeleted: true, // 调用方无法直接写入删除标记
		})
		require.NoError(t, err)
	}
	_, err := repo.CreateActivity(ctx, &domain.Activity{PatientID: "p2", Type: "other", Title: "x"})
	require.NoError(t, err)

	list, err := repo.ListByPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "first", list[2].Title)
	assert.False(t, list[0].IsDeleted)
	assert.Equal(t, float64(2), list[0].Metadata["index"])
}

func TestAlertRepository_DualDestinations(t *testing.T) {
	s, _ := setupStore()
	repo := NewAlertRepository(s, zap.NewNop())
	ctx := context.Background()

	alert := &domain.SOSAlert{
		PatientID:    "p1",
		PatientName:  "Jane Doe",
		Timestamp:    time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC),
		Status:       domain.AlertActive,
		Type:         domain.AlertTypeSOS,
		Severity:     domain.SeverityCritical,
		Message:      "Jane Doe needs immediate help. SOS alert triggered.",
		CaregiverIDs: []string{"c1"},
		Location:     &domain.Location{Latitude: 1, Longitude: 2, Accuracy: 3},
	}

	patientAlertID, err := repo.CreatePatientAlert(ctx, alert)
	require.NoError(t, err)
	logID, err := repo.CreateAlertLog(ctx, alert)
	require.NoError(t, err)
	assert.NotEqual(t, patientAlertID, logID)

	stored, err := repo.GetPatientAlert(ctx, "p1", patientAlertID)
	require.NoError(t, err)
	logs, err := repo.ListAlertLogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, logs, 1)

	stored.AlertID, logs[0].AlertID = "", ""
	assert.Equal(t, stored, logs[0])
	assert.Equal(t, alert.Message, stored.Message)
	assert.Equal(t, []string{"c1"}, stored.CaregiverIDs)

	assert.Equal(t, "patients/p1/sosAlerts", PatientAlertsCollection("p1"))
}
