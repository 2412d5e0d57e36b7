package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

var errVolcengineCredentials = errors.New("volcengine speech requires SPEECH_APP_ID and SPEECH_ACCESS_TOKEN")

// resolveCredentials 返回规范化后的 AppID 与 AccessToken，缺失时给出明确错误。
func resolveCredentials(cfg *speechmodel.VolcengineConfig) (string, string, error) {
	if cfg == nil {
		return "", "", errVolcengineCredentials
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if appID == "" || token == "" {
		return "", "", errVolcengineCredentials
	}
	return appID, token, nil
}
