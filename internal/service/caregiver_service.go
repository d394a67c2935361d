package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

// CaregiverSource 一个护理人员来源；返回空集合表示交给下一个来源
type CaregiverSource struct {
	Name    string
	Resolve func(ctx context.Context, patient *domain.Patient) ([]string, error)
}

// AssignedCaregiversSource 患者文档上的 assignedCaregivers（快速、权威）
func AssignedCaregiversSource() CaregiverSource {
	return CaregiverSource{
		Name: "assigned_caregivers",
		Resolve: func(_ context.Context, patient *domain.Patient) ([]string, error) {
			return patient.AssignedCaregivers, nil
		},
	}
}

// ActiveRelationsSource patientCaregiverRelations 中 status=active 的关系
func ActiveRelationsSource(relations RelationReader) CaregiverSource {
	return CaregiverSource{
		Name: "active_relations",
		Resolve: func(ctx context.Context, patient *domain.Patient) ([]string, error) {
			rels, err := relations.ListActiveRelations(ctx, patient.PatientID)
			if err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(rels))
			for _, rel := range rels {
				if rel.Status != domain.RelationActive {
					continue
				}
				ids = append(ids, rel.CaregiverID)
			}
			return ids, nil
		},
	}
}

// CaregiverService 护理人员解析服务接口
type CaregiverService interface {
	// ResolveCaregivers 读取患者并解析需要通知的护理人员，可能返回空集合
	ResolveCaregivers(ctx context.Context, patientID string) ([]string, error)
	// ResolveForPatient 基于已读取的患者解析
	ResolveForPatient(ctx context.Context, patient *domain.Patient) ([]string, error)
}

// caregiverService 实现
type caregiverService struct {
	patients PatientReader
	sources  []CaregiverSource
	logger   *zap.Logger
}

// CaregiverOption CaregiverService 选项
type CaregiverOption func(*caregiverService)

// WithCaregiverSources 在默认来源之后追加来源
func WithCaregiverSources(sources ...CaregiverSource) CaregiverOption {
	return func(s *caregiverService) {
		s.sources = append(s.sources, sources...)
	}
}

// NewCaregiverService 创建 CaregiverService 实例
// 默认来源顺序：assignedCaregivers → active relations
func NewCaregiverService(patients PatientReader, relations RelationReader, logger *zap.Logger, opts ...CaregiverOption) CaregiverService {
	s := &caregiverService{
		patients: patients,
		sources: []CaregiverSource{
			AssignedCaregiversSource(),
			ActiveRelationsSource(relations),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *caregiverService) ResolveCaregivers(ctx context.Context, patientID string) ([]string, error) {
	patient, err := loadPatient(ctx, s.patients, patientID)
	if err != nil {
		return nil, err
	}
	return s.ResolveForPatient(ctx, patient)
}

func (s *caregiverService) ResolveForPatient(ctx context.Context, patient *domain.Patient) ([]string, error) {
	if patient == nil {
		return nil, invalidInput("patient is required")
	}

	for _, source := range s.sources {
		ids, err := source.Resolve(ctx, patient)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve caregivers from %s: %w", source.Name, err)
		}
		if ids = dedupeIDs(ids); len(ids) > 0 {
			s.logger.Debug("Caregivers resolved",
				zap.String("patient_id", patient.PatientID),
				zap.String("source", source.Name),
				zap.Int("count", len(ids)),
			)
			return ids, nil
		}
	}

	s.logger.Warn("No caregivers resolved for patient", zap.String("patient_id", patient.PatientID))
	return []string{}, nil
}

// dedupeIDs 去重并丢弃空 ID，保持首次出现的顺序
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// loadPatient 读取患者，把 store.ErrNotFound 映射为 ErrPatientNotFound
func loadPatient(ctx context.Context, patients PatientReader, patientID string) (*domain.Patient, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, invalidInput("patient_id is required")
	}
	patient, err := patients.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
		}
		return nil, err
	}
	return patient, nil
}
