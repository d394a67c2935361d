package service

import (
	"context"
	"fmt"
	"time"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/location"
	"wisefido-sos/internal/metrics"

	"go.uber.org/zap"
)

// LocationAcquirer 有界定位（location.Acquirer 实现）
type LocationAcquirer interface {
	Acquire(ctx context.Context, target string, maxWait time.Duration, opts location.Options) *domain.Location
}

// SOSConfig 调度配置
type SOSConfig struct {
	LocationWait    time.Duration
	LocationOptions location.Options
	NameResolvers   []NameResolver
	Now             func() time.Time
}

// TriggerSOSResult 调度结果
// GlobalLogErr 非空表示全局报警日志写入失败，患者报警仍然有效
type TriggerSOSResult struct {
	AlertID      string
	Alert        *domain.SOSAlert
	GlobalLogID  string
	GlobalLogErr error
}

// SOSService SOS 报警调度服务接口
type SOSService interface {
	TriggerSOS(ctx context.Context, patientID string) (*TriggerSOSResult, error)
}

type sosService struct {
	patients   PatientReader
	caregivers CaregiverService
	alerts     AlertWriter
	activities ActivityService
	acquirer   LocationAcquirer
	cfg        SOSConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewSOSService 创建 SOSService 实例
func NewSOSService(
	patients PatientReader,
	caregivers CaregiverService,
	alerts AlertWriter,
	activities ActivityService,
	acquirer LocationAcquirer,
	cfg SOSConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) SOSService {
	if cfg.LocationWait <= 0 {
		cfg.LocationWait = location.DefaultWait
	}
	if cfg.LocationOptions == (location.Options{}) {
		cfg.LocationOptions = location.DefaultOptions()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &sosService{
		patients:   patients,
		caregivers: caregivers,
		alerts:     alerts,
		activities: activities,
		acquirer:   acquirer,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// SOSMessage 报警消息文本（不提及位置）
func SOSMessage(patientName string) string {
	return fmt.Sprintf("%s needs immediate help. SOS alert triggered.", patientName)
}

// TriggerSOS 触发 SOS：定位与护理人员解析并行，构建报警后写入两处
func (s *sosService) TriggerSOS(ctx context.Context, patientID string) (*TriggerSOSResult, error) {
	result, err := s.trigger(ctx, patientID)
	if err != nil {
		s.metrics.RecordTrigger(metrics.ResultFailure)
		s.logger.Error("SOS dispatch failed", zap.String("patient_id", patientID), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordTrigger(metrics.ResultSuccess)
	return result, nil
}

func (s *sosService) trigger(ctx context.Context, patientID string) (*TriggerSOSResult, error) {
	if patientID == "" {
		return nil, invalidInput("patient_id is required")
	}

	// 调用方断开后调度仍需完成，只有定位等待受 Acquirer 的计时器约束
	ctx = context.WithoutCancel(ctx)

	// 1. 定位在独立 goroutine 中进行，等待上限由 Acquirer 保证
	locCtx, cancelLoc := context.WithCancel(ctx)
	defer cancelLoc()
	locCh := make(chan *domain.Location, 1)
	go func() {
		if s.acquirer == nil {
			locCh <- nil
			return
		}
		locCh <- s.acquirer.Acquire(locCtx, patientID, s.cfg.LocationWait, s.cfg.LocationOptions)
	}()

	// 2. 读取患者并解析护理人员（失败即终止）
	patient, err := loadPatient(ctx, s.patients, patientID)
	if err != nil {
		return nil, err
	}
	caregiverIDs, err := s.caregivers.ResolveForPatient(ctx, patient)
	if err != nil {
		return nil, err
	}

	// 3. 姓名快照
	patientName := ResolvePatientName(patient, s.cfg.NameResolvers...)

	loc := <-locCh
	if loc != nil && !patient.AllowsLocation() {
		s.logger.Debug("Location withheld by patient SOS settings", zap.String("patient_id", patientID))
		loc = nil
	}

	// 4. 构建报警
	alert := &domain.SOSAlert{
		PatientID:    patientID,
		PatientName:  patientName,
		Timestamp:    s.cfg.Now().UTC(),
		Status:       domain.AlertActive,
		Type:         domain.AlertTypeSOS,
		Severity:     domain.SeverityCritical,
		Message:      SOSMessage(patientName),
		CaregiverIDs: append([]string{}, caregiverIDs...),
		Location:     loc,
	}

	// 5. 两处都要尝试写入；患者报警是权威记录
	alertID, primaryErr := s.alerts.CreatePatientAlert(ctx, alert)
	s.metrics.RecordAlertWrite(metrics.DestinationPatient, primaryErr)
	logID, globalErr := s.alerts.CreateAlertLog(ctx, alert)
	s.metrics.RecordAlertWrite(metrics.DestinationGlobal, globalErr)

	if globalErr != nil {
		s.logger.Error("Failed to write global alert log",
			zap.String("patient_id", patientID),
			zap.Error(globalErr),
		)
	}
	if primaryErr != nil {
		return nil, fmt.Errorf("failed to persist SOS alert: %w", primaryErr)
	}
	alert.AlertID = alertID

	s.logger.Info("SOS alert dispatched",
		zap.String("patient_id", patientID),
		zap.String("alert_id", alertID),
		zap.Int("caregiver_count", len(caregiverIDs)),
		zap.Bool("has_location", loc != nil),
	)

	// 6. 活动记录，失败不影响结果
	if s.activities != nil {
		if _, err := s.activities.Append(ctx, patientID, domain.ActivitySOSTriggered, "SOS alert triggered", map[string]any{
			"alertId":        alertID,
			"caregiverCount": len(caregiverIDs),
			"hasLocation":    loc != nil,
		}); err != nil {
			s.logger.Error("Failed to log SOS activity", zap.String("alert_id", alertID), zap.Error(err))
		}
	}

	return &TriggerSOSResult{
		AlertID:      alertID,
		Alert:        alert,
		GlobalLogID:  logID,
		GlobalLogErr: globalErr,
	}, nil
}
