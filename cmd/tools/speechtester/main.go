package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/config"
	"github.com/zhouzirui/voice-interviewer/backend/internal/logging"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/speech"
)

func main() {
	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	text := flag.String("text", "", "TTS 输入文本")
	outputPath := flag.String("out", "", "TTS 输出音频文件路径 (默认根据格式自动生成)")
	asrProvider := flag.String("asr", "", "覆盖 SPEECH_ASR_PROVIDER (openai, volcengine, google)")
	ttsProvider := flag.String("tts", "", "覆盖 SPEECH_TTS_PROVIDER (openai, volcengine)")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env, using system environment: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *mode != "asr" && *mode != "tts" {
		flag.Usage()
		logger.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}

	speechCfg := cfg.Speech
	if *asrProvider != "" {
		speechCfg.ASRProvider = *asrProvider
	}
	if *ttsProvider != "" {
		speechCfg.TTSProvider = *ttsProvider
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := speech.NewService(ctx, speechCfg, logger)
	if err != nil {
		logger.Fatal("failed to init speech providers", zap.Error(err))
	}
	defer svc.Close()

	switch *mode {
	case "asr":
		err = runASR(ctx, svc, logger, *audioPath)
	case "tts":
		err = runTTS(ctx, svc, logger, *text, *outputPath, speechCfg.AudioFormat)
	}
	if err != nil {
		logger.Fatal("speech test failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func runASR(ctx context.Context, svc *speech.Service, logger *zap.Logger, audioPath string) error {
	if audioPath == "" {
		return fmt.Errorf("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	logger.Info("starting ASR test", zap.String("file", audioPath), zap.Int("bytes", len(audio)))

	started := time.Now()
	transcript, err := svc.Transcribe(ctx, audio, filepath.Base(audioPath))
	if err != nil {
		return err
	}

	logger.Info("ASR succeeded", zap.String("transcript", transcript), zap.Duration("took", time.Since(started)))
	return nil
}

func runTTS(ctx context.Context, svc *speech.Service, logger *zap.Logger, text, outputPath, format string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("TTS 模式需要通过 -text 提供待合成文本")
	}
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	started := time.Now()
	audio, err := svc.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}

	logger.Info("TTS succeeded",
		zap.String("out", outputPath),
		zap.Int("bytes", len(audio)),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}
