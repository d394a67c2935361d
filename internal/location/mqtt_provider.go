package location

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"wisefido-sos/common/mqtt"
	"wisefido-sos/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broker MQTT 能力子集（common/mqtt.Client 实现）
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// locationRequest 下发给设备的定位请求
type locationRequest struct {
	RequestID    string `json:"requestId"`
	Accuracy     string `json:"accuracy"`
	TimeoutMs    int64  `json:"timeoutMs"`
	MaximumAgeMs int64  `json:"maximumAgeMs"`
}

// locationResponse 设备回复
type locationResponse struct {
	RequestID string   `json:"requestId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Error     string   `json:"error,omitempty"`
}

type pendingRequest struct {
	target string
	cb     Callback
}

// MQTTProvider 通过 MQTT 向设备请求位置
// 请求：{prefix}/{target}/location/request
// 回复：{prefix}/{target}/location/response，按 requestId 关联
type MQTTProvider struct {
	broker Broker
	prefix string
	qos    byte
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]pendingRequest
}

// NewMQTTProvider 创建 MQTT 定位提供方
func NewMQTTProvider(broker Broker, prefix string, qos byte, logger *zap.Logger) *MQTTProvider {
	return &MQTTProvider{
		broker:  broker,
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     qos,
		logger:  logger,
		pending: map[string]pendingRequest{},
	}
}

func (p *MQTTProvider) requestTopic(target string) string {
	return fmt.Sprintf("%s/%s/location/request", p.prefix, target)
}

func (p *MQTTProvider) responseTopic() string {
	return p.prefix + "/+/location/response"
}

// Start 订阅定位回复主题
func (p *MQTTProvider) Start() error {
	if err := p.broker.Subscribe(p.responseTopic(), p.qos, p.handleResponse); err != nil {
		return fmt.Errorf("failed to subscribe to location responses: %w", err)
	}
	p.logger.Info("MQTT location provider started", zap.String("topic", p.responseTopic()))
	return nil
}

// Stop 取消订阅
func (p *MQTTProvider) Stop() error {
	return p.broker.Unsubscribe(p.responseTopic())
}

// Locate 发布定位请求；stop 丢弃尚未到达的回复
func (p *MQTTProvider) Locate(ctx context.Context, target string, opts Options, cb Callback) func() {
	requestID := uuid.NewString()
	stop := func() { p.take(requestID) }

	if target == "" {
		cb(nil, fmt.Errorf("location target is required"))
		return stop
	}

	payload, err := json.Marshal(locationRequest{
		RequestID:    requestID,
		Accuracy:     string(opts.Accuracy),
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	})
	if err != nil {
		cb(nil, fmt.Errorf("failed to marshal location request: %w", err))
		return stop
	}

	p.mu.Lock()
	p.pending[requestID] = pendingRequest{target: target, cb: cb}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		p.take(requestID)
		cb(nil, err)
		return stop
	}
	if err := p.broker.Publish(p.requestTopic(target), p.qos, false, payload); err != nil {
		p.take(requestID)
		cb(nil, fmt.Errorf("failed to publish location request: %w", err))
		return stop
	}

	p.logger.Debug("Location request published",
		zap.String("target", target),
		zap.String("request_id", requestID),
	)
	return stop
}

func (p *MQTTProvider) take(requestID string) (pendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.pending[requestID]
	if ok {
		delete(p.pending, requestID)
	}
	return req, ok
}

// handleResponse 处理设备回复
// 主题格式: {prefix}/{target}/location/response
func (p *MQTTProvider) handleResponse(topic string, payload []byte) error {
	var resp locationResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal location response: %w", err)
	}
	if resp.RequestID == "" {
		return fmt.Errorf("location response without requestId on %s", topic)
	}

	target := strings.TrimSuffix(strings.TrimPrefix(topic, p.prefix+"/"), "/location/response")

	p.mu.Lock()
	req, ok := p.pending[resp.RequestID]
	if ok && req.target != target {
		p.mu.Unlock()
		p.logger.Warn("Location response from unexpected device",
			zap.String("request_id", resp.RequestID),
			zap.String("expected", req.target),
			zap.String("topic", topic),
		)
		return nil
	}
	delete(p.pending, resp.RequestID)
	p.mu.Unlock()

	if !ok {
		// 已超时或已被取消
		p.logger.Debug("Discarding late location response", zap.String("request_id", resp.RequestID))
		return nil
	}

	switch {
	case resp.Error != "":
		req.cb(nil, fmt.Errorf("device %s reported: %s", target, resp.Error))
	case resp.Latitude == nil || resp.Longitude == nil:
		req.cb(nil, ErrNoFix)
	default:
		req.cb(&domain.Location{
			Latitude:  *resp.Latitude,
			Longitude: *resp.Longitude,
			Accuracy:  resp.Accuracy,
		}, nil)
	}
	return nil
}

// Pending 在途请求数
func (p *MQTTProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
