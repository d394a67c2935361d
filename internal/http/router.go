package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterPatientRoutes /api/v1/patients/{id}/...
func (r *Router) RegisterPatientRoutes(h *PatientHandler) {
	r.HandleHandler("/api/v1/patients/", h)
}

// RegisterReminderRoutes /api/v1/reminders/{id}[/complete]
func (r *Router) RegisterReminderRoutes(h *ReminderHandler) {
	r.HandleHandler("/api/v1/reminders/", h)
}

// RegisterSettingsRoutes 只读显示设置
func (r *Router) RegisterSettingsRoutes(h *SettingsHandler) {
	r.Handle("/api/v1/settings/display", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetDisplaySettings(w, req)
	})
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterMetricsRoutes Prometheus 抓取端点
func (r *Router) RegisterMetricsRoutes(h http.Handler) {
	r.HandleHandler("/metrics", h)
}
