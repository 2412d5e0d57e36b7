package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

const maxErrorBody = 2048

// OpenAIClient talks to the OpenAI audio endpoints: transcriptions and speech.
type OpenAIClient struct {
	config     *speech.OpenAIConfig
	httpClient *http.Client
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// NewOpenAIClient 创建 OpenAI 音频客户端。httpClient 为空时使用带超时的默认客户端。
func NewOpenAIClient(config *speech.OpenAIConfig, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &OpenAIClient{config: config, httpClient: httpClient}
}

func (c *OpenAIClient) endpoint(path string) string {
	base := strings.TrimRight(strings.TrimSpace(c.config.BaseURL), "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return base + path
}

// Recognize uploads the audio file and asks for a plain text transcript.
func (c *OpenAIClient) Recognize(ctx context.Context, req *speech.ASRRequest) (string, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return "", fmt.Errorf("openai api key is not configured")
	}

	file, err := os.Open(req.AudioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy audio into request: %w", err)
	}

	model := c.config.TranscribeModel
	if model == "" {
		model = "whisper-1"
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/transcriptions"), &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("transcription", resp.Status, data)
	}

	return string(data), nil
}

// Synthesize requests speech audio in the configured voice and encoding.
func (c *OpenAIClient) Synthesize(ctx context.Context, req *speech.TTSRequest) ([]byte, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}

	payload := openAISpeechRequest{
		Model:          firstNonEmpty(c.config.TTSModel, "tts-1"),
		Input:          req.Text,
		Voice:          firstNonEmpty(req.Voice, c.config.Voice, "alloy"),
		ResponseFormat: firstNonEmpty(req.Format, c.config.AudioFormat, "mp3"),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/speech"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send speech request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("speech", resp.Status, data)
	}

	return data, nil
}

func apiError(call, status string, body []byte) error {
	var parsed openAIErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("openai %s returned %s: %s", call, status, parsed.Error.Message)
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("openai %s returned %s: %s", call, status, strings.TrimSpace(string(body)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
