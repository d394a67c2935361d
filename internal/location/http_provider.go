package location

import (
	"context"
	"fmt"
	"strconv"

	"wisefido-sos/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// deviceLocation 设备网关返回的位置
type deviceLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
}

// HTTPProvider 通过设备网关 REST 接口查询位置
// GET {baseURL}/devices/{target}/location
type HTTPProvider struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewHTTPProvider 创建 HTTP 定位提供方
func NewHTTPProvider(baseURL string, logger *zap.Logger) *HTTPProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	return &HTTPProvider{
		httpClient: client,
		logger:     logger,
	}
}

// Locate 在后台发起请求；stop 取消在途请求
func (p *HTTPProvider) Locate(ctx context.Context, target string, opts Options, cb Callback) func() {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)

	go func() {
		defer cancel()

		var body deviceLocation
		resp, err := p.httpClient.R().
			SetContext(ctx).
			SetPathParam("deviceId", target).
			SetQueryParams(map[string]string{
				"accuracy":     string(opts.Accuracy),
				"maximumAgeMs": strconv.FormatInt(opts.MaximumAge.Milliseconds(), 10),
			}).
			SetResult(&body).
			Get("/devices/{deviceId}/location")
		if err != nil {
			cb(nil, fmt.Errorf("failed to call device gateway: %w", err))
			return
		}
		if resp.IsError() {
			p.logger.Warn("Device gateway returned error",
				zap.String("target", target),
				zap.Int("status_code", resp.StatusCode()),
			)
			cb(nil, fmt.Errorf("device gateway returned status %d", resp.StatusCode()))
			return
		}
		if body.Latitude == nil || body.Longitude == nil {
			cb(nil, ErrNoFix)
			return
		}
		cb(&domain.Location{
			Latitude:  *body.Latitude,
			Longitude: *body.Longitude,
			Accuracy:  body.Accuracy,
		}, nil)
	}()

	return cancel
}
