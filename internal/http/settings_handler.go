package httpapi

import (
	"net/http"

	"wisefido-sos/internal/domain"
)

// SettingsHandler 全局显示设置（启动时注入，只读）
type SettingsHandler struct {
	display domain.DisplaySettings
}

func NewSettingsHandler(display domain.DisplaySettings) *SettingsHandler {
	return &SettingsHandler{display: display}
}

func (h *SettingsHandler) GetDisplaySettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.display))
}
