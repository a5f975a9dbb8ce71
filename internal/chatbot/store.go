package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conversation steps.
const (
	PasoInicio           = ""
	PasoEsperandoPatente = "esperando_patente"
)

// State is the per-chat conversation state. It lives in Redis so any instance
// can answer the next message.
type State struct {
	Paso      string    `json:"paso"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists conversation state between webhook calls.
type Store interface {
	Get(ctx context.Context, chatID string) (*State, error)
	Set(ctx context.Context, chatID string, st *State) error
	Delete(ctx context.Context, chatID string) error
}

const (
	stateKeyPrefix = "bot:chat:"
	stateTTL       = 30 * time.Minute
)

type redisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, chatID string) (*State, error) {
	raw, err := s.rdb.Get(ctx, stateKeyPrefix+chatID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &State{Paso: PasoInicio}, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		// Corrupt state resets the conversation.
		return &State{Paso: PasoInicio}, nil
	}
	return &st, nil
}

func (s *redisStore) Set(ctx context.Context, chatID string, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKeyPrefix+chatID, data, stateTTL).Err()
}

func (s *redisStore) Delete(ctx context.Context, chatID string) error {
	return s.rdb.Del(ctx, stateKeyPrefix+chatID).Err()
}
