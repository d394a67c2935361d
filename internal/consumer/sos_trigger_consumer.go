package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"wisefido-sos/common/mqtt"
	"wisefido-sos/internal/service"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅能力（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// triggerMessage 设备上报的 SOS 触发消息，patientId 为空时取主题中的患者 ID
type triggerMessage struct {
	PatientID string `json:"patientId"`
}

// SOSTriggerConsumer 订阅设备 SOS 触发并发起调度
type SOSTriggerConsumer struct {
	subscriber Subscriber
	sos        service.SOSService
	topic      string
	qos        byte
	logger     *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	inflight sync.WaitGroup
}

// NewSOSTriggerConsumer 创建 SOS 触发消费者
func NewSOSTriggerConsumer(subscriber Subscriber, sos service.SOSService, topic string, qos byte, logger *zap.Logger) *SOSTriggerConsumer {
	return &SOSTriggerConsumer{
		subscriber: subscriber,
		sos:        sos,
		topic:      topic,
		qos:        qos,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start 订阅触发主题并阻塞到 ctx 结束
func (c *SOSTriggerConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to trigger topic: %w", err)
	}

	c.logger.Info("SOS trigger consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅并等待进行中的调度结束
func (c *SOSTriggerConsumer) Stop(ctx context.Context) error {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for in-flight SOS dispatches: %w", ctx.Err())
	}

	c.logger.Info("SOS trigger consumer stopped")
	return nil
}

// handleMessage 处理触发消息
// 主题格式: {prefix}/{patientId}/trigger
func (c *SOSTriggerConsumer) handleMessage(topic string, payload []byte) error {
	patientID, err := parseTrigger(topic, payload)
	if err != nil {
		c.logger.Warn("Discarding malformed SOS trigger",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}

	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	// 调度可能等待定位，不阻塞 MQTT 回调；关闭时已开始的调度继续完成
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.dispatch(context.WithoutCancel(ctx), patientID, topic)
	}()
	return nil
}

func (c *SOSTriggerConsumer) dispatch(ctx context.Context, patientID, topic string) {
	res, err := c.sos.TriggerSOS(ctx, patientID)
	if err != nil {
		c.logger.Error("SOS trigger from device failed",
			zap.String("patient_id", patientID),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("SOS trigger from device dispatched",
		zap.String("patient_id", patientID),
		zap.String("alert_id", res.AlertID),
	)
}

func parseTrigger(topic string, payload []byte) (string, error) {
	var msg triggerMessage
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			return "", fmt.Errorf("failed to unmarshal trigger: %w", err)
		}
	}

	topicPatient := ""
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 && parts[len(parts)-1] == "trigger" {
		topicPatient = parts[len(parts)-2]
	}

	switch {
	case msg.PatientID != "" && topicPatient != "" && msg.PatientID != topicPatient:
		return "", fmt.Errorf("patient %s does not match topic %s", msg.PatientID, topic)
	case msg.PatientID != "":
		return msg.PatientID, nil
	case topicPatient != "":
		return topicPatient, nil
	}
	return "", fmt.Errorf("no patient id in trigger on %s", topic)
}
