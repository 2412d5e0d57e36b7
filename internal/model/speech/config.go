package speech

// VolcengineConfig 火山引擎语音配置
type VolcengineConfig struct {
	AppID          string `json:"appId"`          // 火山引擎 APP ID
	AccessToken    string `json:"accessToken"`    // 火山引擎 Access Token
	ConcurrentMode bool   `json:"concurrentMode"` // ASR并发模式（false为小时版）

	// ASR 配置
	ASRLanguage string `json:"asrLanguage"`
	ASREndpoint string `json:"asrEndpoint,omitempty"`

	// TTS 配置
	TTSVoice    string  `json:"ttsVoice"`
	TTSSpeed    float32 `json:"ttsSpeed"`
	TTSVolume   float32 `json:"ttsVolume"`
	TTSLanguage string  `json:"ttsLanguage"`
	TTSEndpoint string  `json:"ttsEndpoint,omitempty"`
}

// OpenAIConfig 描述 OpenAI 兼容的音频接口。
type OpenAIConfig struct {
	APIKey          string `json:"apiKey"`
	BaseURL         string `json:"baseUrl"`
	TranscribeModel string `json:"transcribeModel"`
	TTSModel        string `json:"ttsModel"`
	Voice           string `json:"voice"`
	AudioFormat     string `json:"audioFormat"`
}
