package interview

import "time"

// Report is the exported summary of a session.
type Report struct {
	SessionInfo  SessionInfo `json:"session_info"`
	Conversation []Turn      `json:"conversation"`
	Evaluation   Evaluation  `json:"evaluation"`
}

// SessionInfo holds report metadata. Duration is the number of turns, not wall time.
type SessionInfo struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	Duration  int       `json:"duration"`
}

// Evaluation is a deliberately simple score derived from candidate turns only.
type Evaluation struct {
	TotalResponses        int     `json:"total_responses"`
	AverageResponseLength float64 `json:"average_response_length"`
	EngagementScore       int     `json:"engagement_score"`
	Notes                 string  `json:"notes"`
}
