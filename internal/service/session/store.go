package session

import (
	"context"
	"errors"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrConcurrentUpdate  = errors.New("session modified concurrently")
	ErrSessionIDRequired = errors.New("session id is required")
)

// MutateFunc edits a working copy of a session. Returning an error discards the copy.
type MutateFunc func(s *interview.Session) error

// Store owns interview sessions for the lifetime of the process.
//
// Update serializes writers per session id: two exchanges on the same session never
// interleave, while different sessions proceed independently. Readers never wait for a
// writer, they see the last committed state.
type Store interface {
	Create(ctx context.Context, s interview.Session) error
	Get(ctx context.Context, id string) (interview.Session, error)
	Update(ctx context.Context, id string, fn MutateFunc) error
}
