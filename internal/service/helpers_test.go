package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/repository"
	"wisefido-sos/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// faultyStore 按集合注入故障的文档存储
type faultyStore struct {
	store.DocumentStore

	mu         sync.Mutex
	failCreate map[string]error
	failGet    map[string]error
	failQuery  map[string]error
	failUpdate map[string]error
	creates    map[string]int
	queries    map[string]int
}

func newFaultyStore(inner store.DocumentStore) *faultyStore {
	return &faultyStore{
		DocumentStore: inner,
		failCreate:    map[string]error{},
		failGet:       map[string]error{},
		failQuery:     map[string]error{},
		failUpdate:    map[string]error{},
		creates:       map[string]int{},
		queries:       map[string]int{},
	}
}

func (f *faultyStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	f.mu.Lock()
	f.creates[collection]++
	err := f.failCreate[collection]
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.DocumentStore.Create(ctx, collection, data)
}

func (f *faultyStore) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	f.mu.Lock()
	err := f.failGet[collection]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.DocumentStore.Get(ctx, collection, id)
}

func (f *faultyStore) Query(ctx context.Context, collection string, filters ...store.Filter) ([]*store.Document, error) {
	f.mu.Lock()
	f.queries[collection]++
	err := f.failQuery[collection]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.DocumentStore.Query(ctx, collection, filters...)
}

func (f *faultyStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	err := f.failUpdate[collection]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.DocumentStore.Update(ctx, collection, id, fields)
}

func (f *faultyStore) createCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[collection]
}

func (f *faultyStore) queryCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[collection]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// testEnv 基于内存存储的完整仓库与服务
type testEnv struct {
	store      *faultyStore
	clock      *testClock
	patients   *repository.PatientRepository
	relations  *repository.CaregiverRelationRepository
	reminders  *repository.ReminderRepository
	activities *repository.ActivityRepository
	alerts     *repository.AlertRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)}
	seq := 0
	var seqMu sync.Mutex
	mem := store.NewMemoryDocumentStore(
		store.WithClock(clock.Now),
		store.WithIDGenerator(func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("doc-%03d", seq)
		}),
	)
	fs := newFaultyStore(mem)
	logger := zap.NewNop()
	return &testEnv{
		store:      fs,
		clock:      clock,
		patients:   repository.NewPatientRepository(fs, logger),
		relations:  repository.NewCaregiverRelationRepository(fs, logger),
		reminders:  repository.NewReminderRepository(fs, logger),
		activities: repository.NewActivityRepository(fs, logger),
		alerts:     repository.NewAlertRepository(fs, logger),
	}
}

func (e *testEnv) addPatient(t *testing.T, p domain.Patient) {
	t.Helper()
	require.NoError(t, e.patients.SavePatient(context.Background(), &p))
}

func (e *testEnv) addRelation(t *testing.T, patientID, caregiverID string, status domain.RelationStatus) {
	t.Helper()
	_, err := e.relations.CreateRelation(context.Background(), &domain.CaregiverRelation{
		PatientID:   patientID,
		CaregiverID: caregiverID,
		Status:      status,
	})
	require.NoError(t, err)
}

func (e *testEnv) activitiesOf(t *testing.T, patientID string) []*domain.Activity {
	t.Helper()
	list, err := e.activities.ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	return list
}
