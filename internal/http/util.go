package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"wisefido-sos/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 把服务层错误映射为 HTTP 状态码
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPatientNotFound), errors.Is(err, service.ErrReminderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrReminderInactive):
		status = http.StatusConflict
	default:
		logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, Fail(err.Error()))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// actorID 已认证的调用者（由网关注入 X-User-Id）
func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

// patientIDFromPath 解析患者 ID，"me" 表示调用者本人
func patientIDFromPath(r *http.Request, id string) string {
	if id == "me" {
		return actorID(r)
	}
	return id
}

// splitPath 去掉前缀后按 "/" 切分，如 "p1/reminders" -> ["p1", "reminders"]
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
