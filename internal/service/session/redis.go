package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
)

const defaultKeyPrefix = "interview:session:"

// RedisStore keeps each session as a JSON document under its own key, without TTL.
// Writers in this process are serialized per session; writers in other processes are
// detected with WATCH and reported as ErrConcurrentUpdate.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	locks  *keyedLocker
}

// NewRedisStore wraps an existing client. An empty prefix uses "interview:session:".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, locks: newKeyedLocker()}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create stores a new session, refusing to overwrite an existing id.
func (s *RedisStore) Create(ctx context.Context, session interview.Session) error {
	if session.ID == "" {
		return ErrSessionIDRequired
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	created, err := s.rdb.SetNX(ctx, s.key(session.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !created {
		return ErrSessionExists
	}
	return nil
}

// Get loads the committed session state.
func (s *RedisStore) Get(ctx context.Context, id string) (interview.Session, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return interview.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return interview.Session{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

// Update runs fn under the session's writer lock inside a WATCH transaction.
func (s *RedisStore) Update(ctx context.Context, id string, fn MutateFunc) error {
	key := s.key(id)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		working, err := decodeSession(data)
		if err != nil {
			return err
		}

		if err := fn(&working); err != nil {
			return err
		}
		working.ID = id

		payload, err := json.Marshal(working)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentUpdate
	}
	return err
}

func decodeSession(data []byte) (interview.Session, error) {
	var session interview.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return interview.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if session.Turns == nil {
		session.Turns = make([]interview.Turn, 0, 16)
	}
	return session, nil
}
