package interview

import "time"

// Role tags who produced a turn.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// Turn is one message of the interview. Turns are never edited after they are appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session captures a single candidate's interview conversation.
type Session struct {
	ID           string    `json:"id"`
	Category     Category  `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
	Turns        []Turn    `json:"conversation_history"`
	SystemPrompt string    `json:"system_prompt"`
}

// NewSession builds an empty session whose instruction is derived from category.
func NewSession(id string, category Category, templates Templates, now time.Time) Session {
	return Session{
		ID:           id,
		Category:     category,
		CreatedAt:    now,
		Turns:        make([]Turn, 0, 16),
		SystemPrompt: templates.Instruction(category),
	}
}

// AppendTurn adds a turn, keeping timestamps monotonic even if the clock steps backwards.
func (s *Session) AppendTurn(role Role, content string, at time.Time) Turn {
	if n := len(s.Turns); n > 0 && at.Before(s.Turns[n-1].Timestamp) {
		at = s.Turns[n-1].Timestamp
	}
	turn := Turn{Role: role, Content: content, Timestamp: at}
	s.Turns = append(s.Turns, turn)
	return turn
}

// CandidateTurns returns the candidate's turns in order.
func (s *Session) CandidateTurns() []Turn {
	out := make([]Turn, 0, len(s.Turns)/2+1)
	for _, turn := range s.Turns {
		if turn.Role == RoleCandidate {
			out = append(out, turn)
		}
	}
	return out
}

// Clone returns a copy that shares no turn storage with s.
func (s Session) Clone() Session {
	clone := s
	clone.Turns = make([]Turn, len(s.Turns), len(s.Turns)+2)
	copy(clone.Turns, s.Turns)
	return clone
}
