package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
	"github.com/zhouzirui/voice-interviewer/backend/pkg/utils"
)

const maxUploadSize = 32 << 20 // 32MB

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	logger    *zap.Logger
}

// New 创建语音处理器
func New(speechSvc SpeechService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{speechSvc: speechSvc, logger: logger.Named("speech-handler")}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/transcribe", h.handleTranscribe)
	r.Post("/tts", h.handleSynthesize)
}

// handleTranscribe 处理语音转文本请求，文件字段为 file 或 audio。
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handler.transcribe"

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondAppError(w, apperror.Wrap(apperror.KindValidation, op, "failed to parse multipart form", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := formAudio(r)
	if err != nil {
		utils.RespondAppError(w, apperror.Wrap(apperror.KindValidation, op, "audio file is required", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondAppError(w, apperror.Wrap(apperror.KindValidation, op, "failed to read audio file", err))
		return
	}

	transcript, err := h.speechSvc.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		h.logger.Warn("transcription failed", zap.String("filename", header.Filename), zap.Error(err))
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, speech.TranscribeResponse{Transcript: transcript})
}

func formAudio(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return r.FormFile("audio")
	}
	return file, header, err
}

// handleSynthesize 处理文本转语音请求；文本来自 JSON 请求体或 ?text= 查询参数。
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	const op = "handler.tts"

	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		var req speech.SynthesizeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.RespondAppError(w, apperror.Wrap(apperror.KindValidation, op, "invalid request body", err))
			return
		}
		text = req.Text
	}

	if strings.TrimSpace(text) == "" {
		utils.RespondError(w, http.StatusBadRequest, apperror.KindValidation, "text is required")
		return
	}

	audio, err := h.speechSvc.Synthesize(r.Context(), text)
	if err != nil {
		h.logger.Warn("synthesis failed", zap.Error(err))
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, speech.SynthesizeResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
	})
}
