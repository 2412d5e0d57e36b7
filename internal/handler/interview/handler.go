package interview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	model "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
	interviewsvc "github.com/zhouzirui/voice-interviewer/backend/internal/service/interview"
	"github.com/zhouzirui/voice-interviewer/backend/pkg/utils"
)

const maxJSONBody = 1 << 20

// Service 抽象面试编排，便于测试与替换实现
type Service interface {
	CreateSession(ctx context.Context, rawCategory string) (model.Session, error)
	GetSession(ctx context.Context, id string) (model.Session, error)
	Advance(ctx context.Context, sessionID, candidateText string) (interviewsvc.Exchange, error)
	Export(ctx context.Context, id string) (model.Report, error)
}

// Handler 面试会话的HTTP处理器
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New 创建面试处理器
func New(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger.Named("interview-handler")}
}

// RegisterRoutes 注册面试相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create_session", h.handleCreateSession)
	r.Post("/interview", h.handleInterview)
	r.Get("/session/{session_id}", h.handleGetSession)
	r.Get("/session/{session_id}/export", h.handleExport)
}

type createSessionRequest struct {
	Category      string `json:"category"`
	InterviewType string `json:"interview_type"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type interviewRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Category   string `json:"category"`
}

// handleCreateSession 创建会话；请求体可以为空，此时使用 general。
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	category := req.Category
	if strings.TrimSpace(category) == "" {
		category = req.InterviewType
	}

	sess, err := h.svc.CreateSession(r.Context(), category)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		Message:   "Session created successfully",
	})
}

// handleInterview 推进一轮面试
func (h *Handler) handleInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if err := decodeJSON(r, &req, false); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, apperror.KindValidation, "session_id is required")
		return
	}

	exchange, err := h.svc.Advance(r.Context(), sessionID, req.Transcript)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, exchange)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Export(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, report)
}

// decodeJSON 解析请求体；allowEmpty 时空请求体视为零值。
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	const op = "handler.decodeJSON"

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.Wrap(apperror.KindValidation, op, "invalid request body", err)
	}
	return nil
}
