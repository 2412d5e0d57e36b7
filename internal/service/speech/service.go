package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/internal/config"
	"github.com/zhouzirui/voice-interviewer/backend/internal/metrics"
	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

// Recognizer turns a recorded audio file into text.
type Recognizer interface {
	Recognize(ctx context.Context, req *speech.ASRRequest) (string, error)
}

// Synthesizer renders text as encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speech.TTSRequest) ([]byte, error)
}

const defaultAudioExt = ".wav"

// Service 语音服务：转写与合成的统一入口，负责临时文件和错误分类。
type Service struct {
	recognizer  Recognizer
	synthesizer Synthesizer
	tempDir     string
	timeout     time.Duration
	logger      *zap.Logger
	closers     []func() error
}

// Options tune a Service built with New.
type Options struct {
	TempDir string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New wires explicit providers. Either provider may be nil, in which case the matching
// call fails with an internal error.
func New(recognizer Recognizer, synthesizer Synthesizer, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		tempDir:     opts.TempDir,
		timeout:     opts.Timeout,
		logger:      logger.Named("speech"),
	}
}

// NewService 根据配置选择语音识别与合成的提供方。
func NewService(ctx context.Context, cfg config.SpeechConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	openaiCfg := &speech.OpenAIConfig{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		TranscribeModel: cfg.TranscribeModel,
		TTSModel:        cfg.TTSModel,
		Voice:           cfg.Voice,
		AudioFormat:     cfg.AudioFormat,
	}
	volcCfg := &speech.VolcengineConfig{
		AppID:          cfg.AppID,
		AccessToken:    cfg.AccessToken,
		ConcurrentMode: cfg.ConcurrentMode,
		ASRLanguage:    cfg.ASRLanguage,
		TTSVoice:       cfg.TTSVoice,
		TTSSpeed:       cfg.TTSSpeed,
		TTSVolume:      cfg.TTSVolume,
		TTSLanguage:    cfg.TTSLanguage,
	}

	var (
		openaiClient *OpenAIClient
		closers      []func() error
	)
	openAI := func() *OpenAIClient {
		if openaiClient == nil {
			openaiClient = NewOpenAIClient(openaiCfg, nil)
		}
		return openaiClient
	}

	var recognizer Recognizer
	switch cfg.ASRProvider {
	case config.ProviderOpenAI:
		recognizer = openAI()
	case config.ProviderVolcengine:
		recognizer = NewVolcengineASRClient(volcCfg, logger)
	case config.ProviderGoogle:
		google, err := NewGoogleRecognizer(ctx, cfg.GoogleLanguage)
		if err != nil {
			return nil, fmt.Errorf("init google speech client: %w", err)
		}
		recognizer = google
		closers = append(closers, google.Close)
	default:
		return nil, fmt.Errorf("unsupported ASR provider %q", cfg.ASRProvider)
	}

	var synthesizer Synthesizer
	switch cfg.TTSProvider {
	case config.ProviderOpenAI:
		synthesizer = openAI()
	case config.ProviderVolcengine:
		synthesizer = NewVolcengineTTSClient(volcCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported TTS provider %q", cfg.TTSProvider)
	}

	svc := New(recognizer, synthesizer, Options{
		TempDir: cfg.TempDir,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Logger:  logger,
	})
	svc.closers = closers

	svc.logger.Info("speech providers ready",
		zap.String("asr", cfg.ASRProvider),
		zap.String("tts", cfg.TTSProvider),
	)
	return svc, nil
}

// Close releases provider clients.
func (s *Service) Close() error {
	var first error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Transcribe 把上传的音频写入临时文件交给识别方，返回去除首尾空白的文本。
// 临时文件在任何路径上都会被删除。
func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	const op = "speech.Transcribe"

	if len(audio) == 0 {
		return "", apperror.New(apperror.KindValidation, op, "audio is empty")
	}
	if s.recognizer == nil {
		return "", apperror.New(apperror.KindInternal, op, "speech recognition is not configured")
	}

	ext := audioExtension(filename)
	tmp, err := os.CreateTemp(s.tempDir, "interview-*"+ext)
	if err != nil {
		return "", apperror.Wrap(apperror.KindInternal, op, "create temp audio file", err)
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove temp audio", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return "", apperror.Wrap(apperror.KindInternal, op, "write temp audio file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperror.Wrap(apperror.KindInternal, op, "close temp audio file", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	text, err := s.recognizer.Recognize(ctx, &speech.ASRRequest{
		AudioPath: path,
		Filename:  filename,
		Format:    strings.TrimPrefix(ext, "."),
	})
	metrics.ObserveStage(metrics.StageTranscribe, started, err)
	if err != nil {
		return "", apperror.Wrap(apperror.KindTranscription, op, "transcription failed", err)
	}

	text = strings.TrimSpace(text)
	s.logger.Debug("transcribed audio",
		zap.Int("bytes", len(audio)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return text, nil
}

// Synthesize 用固定音色和编码合成语音，返回原始音频字节。
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	const op = "speech.Synthesize"

	if strings.TrimSpace(text) == "" {
		return nil, apperror.New(apperror.KindValidation, op, "text is empty")
	}
	if s.synthesizer == nil {
		return nil, apperror.New(apperror.KindInternal, op, "speech synthesis is not configured")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	audio, err := s.synthesizer.Synthesize(ctx, &speech.TTSRequest{Text: text})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindSynthesis, op, "synthesis failed", err)
	}
	if len(audio) == 0 {
		return nil, apperror.New(apperror.KindSynthesis, op, "synthesis returned no audio")
	}

	s.logger.Debug("synthesized speech",
		zap.Int("chars", len(text)),
		zap.Int("bytes", len(audio)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return audio, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// audioExtension keeps the upload's extension when it looks like one, .wav otherwise.
func audioExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return defaultAudioExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultAudioExt
		}
	}
	return ext
}
