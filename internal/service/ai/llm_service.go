package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
)

// 面试官回复的采样参数固定，不随配置变化。
const (
	replyMaxTokens   = 150
	replyTemperature = float32(0.7)
)

// Service 把面试指令和对话历史交给聊天模型，生成下一句面试官回复。
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewService compiles the prompt → model chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile interview chain: %w", err)
	}

	return &Service{chain: runnable, logger: logger.Named("ai")}, nil
}

// Reply 生成下一句面试官发言。空回复视为生成失败。
func (s *Service) Reply(ctx context.Context, instruction string, history []interview.Turn) (string, error) {
	const op = "ai.Reply"

	input := map[string]any{
		"system":  instruction,
		"history": buildHistoryMessages(history),
	}

	response, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithMaxTokens(replyMaxTokens),
		model.WithTemperature(replyTemperature),
	))
	if err != nil {
		return "", apperror.Wrap(apperror.KindGeneration, op, "chat completion failed", err)
	}

	text := ""
	if response != nil {
		text = strings.TrimSpace(response.Content)
	}
	if text == "" {
		return "", apperror.New(apperror.KindGeneration, op, "chat completion returned no text")
	}

	s.logger.Debug("generated reply",
		zap.Int("history_turns", len(history)),
		zap.Int("length", len(text)),
	)
	return text, nil
}

// buildHistoryMessages keeps every turn, oldest first.
func buildHistoryMessages(turns []interview.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case interview.RoleCandidate:
			history = append(history, schema.UserMessage(turn.Content))
		case interview.RoleInterviewer:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
