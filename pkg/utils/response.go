package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
)

// ErrorBody 是所有错误响应的 JSON 结构。
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, kind apperror.Kind, message string) {
	RespondJSON(w, status, ErrorBody{Error: message, Kind: string(kind)})
}

// RespondAppError 按错误类型映射状态码并发送错误响应。
func RespondAppError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	RespondJSON(w, apperror.HTTPStatus(kind), ErrorBody{
		Error:  apperror.MessageOf(err),
		Kind:   string(kind),
		Detail: apperror.CauseOf(err),
	})
}
