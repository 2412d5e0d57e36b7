package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server      ServerConfig
	AI          AIConfig
	Speech      SpeechConfig
	Store       StoreConfig
	Log         LogConfig
	PromptsFile string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:      server,
		AI:          ai,
		Speech:      speech,
		Store:       store,
		Log:         logCfg,
		PromptsFile: strings.TrimSpace(os.Getenv("INTERVIEW_PROMPTS_FILE")),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

const (
	ProviderOpenAI     = "openai"
	ProviderArk        = "ark"
	ProviderVolcengine = "volcengine"
	ProviderGoogle     = "google"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider  string
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	Timeout   time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	if c.Provider == ProviderArk {
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	}
	return c.APIKey != ""
}

// NewChatModel 使用配置创建一个模型实例。采样参数由调用方按次传入。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.BaseURL,
			Region:    c.Region,
			APIKey:    c.APIKey,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Model:     c.Model,
		})

	case ProviderOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderOpenAI))

	timeout, err := parseOptionalIntEnv("AI_TIMEOUT")
	if err != nil {
		return AIConfig{}, err
	}
	timeoutSeconds := 60
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	switch provider {
	case ProviderOpenAI:
		return AIConfig{
			Provider: provider,
			APIKey:   strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:    getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:  getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:  time.Duration(timeoutSeconds) * time.Second,
		}, nil

	case ProviderArk:
		return AIConfig{
			Provider:  provider,
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     strings.TrimSpace(os.Getenv("Model")),
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Timeout:   time.Duration(timeoutSeconds) * time.Second,
		}, nil

	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want openai or ark", provider)
	}
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	ASRProvider string
	TTSProvider string
	TempDir     string
	Timeout     int

	// OpenAI 兼容的 REST 接口
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	TranscribeModel string
	TTSModel        string
	Voice           string
	AudioFormat     string

	// 火山引擎
	AppID          string
	AccessToken    string
	ConcurrentMode bool
	ASRLanguage    string
	TTSVoice       string
	TTSSpeed       float32
	TTSVolume      float32
	TTSLanguage    string

	// Google Cloud Speech-to-Text，凭证走 ADC
	GoogleLanguage string
}

// VolcengineEnabled 表示火山引擎凭证是否齐全。
func (c SpeechConfig) VolcengineEnabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	asrProvider := strings.ToLower(getEnvOrDefault("SPEECH_ASR_PROVIDER", ProviderOpenAI))
	switch asrProvider {
	case ProviderOpenAI, ProviderVolcengine, ProviderGoogle:
	default:
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_ASR_PROVIDER value %q", asrProvider)
	}

	ttsProvider := strings.ToLower(getEnvOrDefault("SPEECH_TTS_PROVIDER", ProviderOpenAI))
	switch ttsProvider {
	case ProviderOpenAI, ProviderVolcengine:
	default:
		return SpeechConfig{}, fmt.Errorf("invalid SPEECH_TTS_PROVIDER value %q", ttsProvider)
	}

	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	// 解析TTS速度和音量
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	concurrent, err := parseBoolEnv("SPEECH_ASR_CONCURRENT", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		ASRProvider:     asrProvider,
		TTSProvider:     ttsProvider,
		TempDir:         strings.TrimSpace(os.Getenv("SPEECH_TEMP_DIR")),
		Timeout:         timeoutSeconds,
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:   getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		TranscribeModel: getEnvOrDefault("SPEECH_TRANSCRIBE_MODEL", "whisper-1"),
		TTSModel:        getEnvOrDefault("SPEECH_TTS_MODEL", "tts-1"),
		Voice:           getEnvOrDefault("SPEECH_VOICE", "alloy"),
		AudioFormat:     getEnvOrDefault("SPEECH_AUDIO_FORMAT", "mp3"),
		AppID:           strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:     accessToken,
		ConcurrentMode:  concurrent,
		ASRLanguage:     getEnvOrDefault("SPEECH_ASR_LANGUAGE", "en-US"),
		TTSVoice:        getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		TTSSpeed:        ttsSpeed,
		TTSVolume:       ttsVolume,
		TTSLanguage:     getEnvOrDefault("SPEECH_TTS_LANGUAGE", "en-US"),
		GoogleLanguage:  getEnvOrDefault("SPEECH_GOOGLE_LANGUAGE", "en-US"),
	}, nil
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// StoreConfig 描述会话存储后端。
type StoreConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("SESSION_STORE", StoreMemory))
	switch backend {
	case StoreMemory, StoreRedis:
	default:
		return StoreConfig{}, fmt.Errorf("invalid SESSION_STORE value %q: want memory or redis", backend)
	}

	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return StoreConfig{}, err
	}
	redisDB := 0
	if db != nil {
		redisDB = *db
	}

	return StoreConfig{
		Backend:       backend,
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		RedisPrefix:   getEnvOrDefault("REDIS_KEY_PREFIX", "interview:session:"),
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value %q", level)
	}

	dev, err := parseBoolEnv("LOG_DEVELOPMENT", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{Level: level, Development: dev}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
