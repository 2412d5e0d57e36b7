package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "AI_PROVIDER", "OPENAI_MODEL", "SPEECH_ASR_PROVIDER",
		"SPEECH_TTS_PROVIDER", "SESSION_STORE", "LOG_LEVEL", "SPEECH_VOICE", "SPEECH_AUDIO_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, ProviderOpenAI, cfg.Speech.ASRProvider)
	assert.Equal(t, ProviderOpenAI, cfg.Speech.TTSProvider)
	assert.Equal(t, "whisper-1", cfg.Speech.TranscribeModel)
	assert.Equal(t, "tts-1", cfg.Speech.TTSModel)
	assert.Equal(t, "alloy", cfg.Speech.Voice)
	assert.Equal(t, "mp3", cfg.Speech.AudioFormat)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadServerConfigAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := loadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"AI_PROVIDER":         "bard",
		"SPEECH_ASR_PROVIDER": "carrier-pigeon",
		"SPEECH_TTS_PROVIDER": "google",
		"SESSION_STORE":       "postgres",
		"LOG_LEVEL":           "verbose",
		"SPEECH_TIMEOUT":      "soon",
		"REDIS_DB":            "one",
		"LOG_DEVELOPMENT":     "maybe",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "ep-1", AccessKey: "ak", SecretKey: "sk"}.Enabled())
	assert.False(t, AIConfig{Provider: ProviderArk, Model: "ep-1", AccessKey: "ak"}.Enabled())
}

func TestLoadArkProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "ARK")
	t.Setenv("Model", "ep-123")
	t.Setenv("ARK_API_KEY", "key")

	cfg, err := loadAIConfig()
	require.NoError(t, err)
	assert.Equal(t, ProviderArk, cfg.Provider)
	assert.Equal(t, "ep-123", cfg.Model)
	assert.True(t, cfg.Enabled())
}

func TestSpeechAccessTokenFallsBackToAPIKey(t *testing.T) {
	t.Setenv("SPEECH_ACCESS_TOKEN", "")
	t.Setenv("SPEECH_API_KEY", "legacy")
	t.Setenv("SPEECH_APP_ID", "app")

	cfg, err := loadSpeechConfig()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.AccessToken)
	assert.True(t, cfg.VolcengineEnabled())
}
