package transcript

import (
	"context"
	"slices"
	"sync"
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		messages: make(map[string][]Message),
	}
}

// MemoryStore keeps transcripts in process memory. Everything is lost on restart.
type MemoryStore struct {
	m        sync.RWMutex
	sessions map[string]Session
	messages map[string][]Message
}

var _ Store = (*MemoryStore)(nil)

func (ms *MemoryStore) CreateSession(ctx context.Context, s Session) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.sessions[s.ID] = s
	return nil
}

func (ms *MemoryStore) GetSession(ctx context.Context, id string) (s Session, ok bool, err error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	s, ok = ms.sessions[id]
	return s, ok, nil
}

func (ms *MemoryStore) AddMessages(ctx context.Context, msgs []Message) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	for _, msg := range msgs {
		ms.messages[msg.SessionID] = append(ms.messages[msg.SessionID], msg)
	}
	return nil
}

func (ms *MemoryStore) Messages(ctx context.Context, sessionID string) (msgs []Message, err error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	return slices.Clone(ms.messages[sessionID]), nil
}
