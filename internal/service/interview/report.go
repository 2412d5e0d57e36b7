package interview

import (
	"context"
	"math"
	"unicode/utf8"

	model "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
)

const evaluationNotes = "Automated evaluation based on response patterns and engagement."

// Export 生成会话报告：会话信息、完整对话和基于候选人发言的简单评估。
func (s *Service) Export(ctx context.Context, id string) (model.Report, error) {
	const op = "interview.Export"

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Report{}, storeError(op, err)
	}

	conversation := sess.Turns
	if conversation == nil {
		conversation = []model.Turn{}
	}

	return model.Report{
		SessionInfo: model.SessionInfo{
			ID:        sess.ID,
			Category:  sess.Category,
			CreatedAt: sess.CreatedAt,
			Duration:  len(sess.Turns),
		},
		Conversation: conversation,
		Evaluation:   evaluate(sess.CandidateTurns()),
	}, nil
}

func evaluate(answers []model.Turn) model.Evaluation {
	eval := model.Evaluation{
		TotalResponses:  len(answers),
		EngagementScore: min(10, 2*len(answers)),
		Notes:           evaluationNotes,
	}
	if len(answers) == 0 {
		return eval
	}

	total := 0
	for _, turn := range answers {
		total += utf8.RuneCountInString(turn.Content)
	}
	mean := float64(total) / float64(len(answers))
	eval.AverageResponseLength = math.Round(mean*100) / 100
	return eval
}
