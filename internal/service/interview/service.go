package interview

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/internal/metrics"
	model "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/session"
)

// Generator produces the next interviewer line from the instruction and the history so far.
type Generator interface {
	Reply(ctx context.Context, instruction string, history []model.Turn) (string, error)
}

// Synthesizer turns interviewer text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Exchange is the result of one candidate → interviewer round.
type Exchange struct {
	SessionID           string       `json:"session_id"`
	InterviewerResponse string       `json:"interviewer_response"`
	AudioBase64         string       `json:"audio_base64"`
	ConversationHistory []model.Turn `json:"conversation_history"`
}

// Service 编排一次面试交换：记录候选人发言、生成面试官回复、合成语音。
type Service struct {
	store       session.Store
	generator   Generator
	synthesizer Synthesizer
	templates   model.Templates
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewService wires the orchestrator. A nil templates map uses the built-in instructions.
func NewService(store session.Store, generator Generator, synthesizer Synthesizer, templates model.Templates, logger *zap.Logger) *Service {
	if templates == nil {
		templates = model.DefaultTemplates()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		generator:   generator,
		synthesizer: synthesizer,
		templates:   templates,
		logger:      logger.Named("interview"),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// CreateSession 创建会话；未知类别按 general 处理。
func (s *Service) CreateSession(ctx context.Context, rawCategory string) (model.Session, error) {
	const op = "interview.CreateSession"

	category, known := model.ParseCategory(rawCategory)
	if !known && strings.TrimSpace(rawCategory) != "" {
		s.logger.Info("unknown category, using general", zap.String("category", rawCategory))
	}

	sess := model.NewSession(s.newID(), category, s.templates, s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		return model.Session{}, apperror.Wrap(apperror.KindInternal, op, "failed to register session", err)
	}

	metrics.SessionCreated(string(category))
	s.logger.Info("session created", zap.String("session_id", sess.ID), zap.String("category", string(category)))
	return sess, nil
}

// GetSession returns the committed session record.
func (s *Service) GetSession(ctx context.Context, id string) (model.Session, error) {
	const op = "interview.GetSession"

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Session{}, storeError(op, err)
	}
	return sess, nil
}

// Advance 推进一轮面试。整轮在会话写锁内完成：任何一步失败，本轮追加的发言全部回滚。
// 空的候选人文本不追加候选人发言，但仍生成一句面试官回复。
func (s *Service) Advance(ctx context.Context, sessionID, candidateText string) (Exchange, error) {
	const op = "interview.Advance"

	if s.generator == nil || s.synthesizer == nil {
		return Exchange{}, apperror.New(apperror.KindInternal, op, "interview pipeline is not configured")
	}

	var exchange Exchange
	err := s.store.Update(ctx, sessionID, func(sess *model.Session) error {
		if text := strings.TrimSpace(candidateText); text != "" {
			sess.AppendTurn(model.RoleCandidate, text, s.now())
		}

		started := time.Now()
		reply, err := s.generator.Reply(ctx, sess.SystemPrompt, sess.Turns)
		metrics.ObserveStage(metrics.StageGenerate, started, err)
		if err != nil {
			return apperror.Ensure(apperror.KindGeneration, op, "failed to generate reply", err)
		}

		sess.AppendTurn(model.RoleInterviewer, reply, s.now())

		started = time.Now()
		audio, err := s.synthesizer.Synthesize(ctx, reply)
		metrics.ObserveStage(metrics.StageSynthesize, started, err)
		if err != nil {
			return apperror.Ensure(apperror.KindSynthesis, op, "failed to synthesize reply", err)
		}

		history := make([]model.Turn, len(sess.Turns))
		copy(history, sess.Turns)

		exchange = Exchange{
			SessionID:           sess.ID,
			InterviewerResponse: reply,
			AudioBase64:         base64.StdEncoding.EncodeToString(audio),
			ConversationHistory: history,
		}
		return nil
	})
	if err != nil {
		err = storeError(op, err)
		metrics.ExchangeFinished(string(apperror.KindOf(err)))
		s.logger.Warn("exchange failed",
			zap.String("session_id", sessionID),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err),
		)
		return Exchange{}, err
	}

	metrics.ExchangeFinished("ok")
	s.logger.Info("exchange completed",
		zap.String("session_id", sessionID),
		zap.Int("turns", len(exchange.ConversationHistory)),
	)
	return exchange, nil
}

// storeError maps store sentinels onto error kinds and keeps classified errors as they are.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return apperror.Wrap(apperror.KindNotFound, op, "session not found", err)
	case errors.Is(err, session.ErrConcurrentUpdate):
		return apperror.Wrap(apperror.KindInternal, op, "session was modified concurrently, retry the exchange", err)
	default:
		return apperror.Ensure(apperror.KindInternal, op, "session store failure", err)
	}
}
