package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/domain"
)

// MemorySessionStore keeps sessions, channel segments and audio in memory.
type MemorySessionStore struct {
	sessions map[string]*domain.Session
	segments map[string][]api.Segment
	audio    map[string][]byte

	lock sync.RWMutex
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*domain.Session),
		segments: make(map[string][]api.Segment),
		audio:    make(map[string][]byte),
	}
}

func channelKey(id, channel string) string {
	return fmt.Sprintf("%s:%s", id, channel)
}

func (ms *MemorySessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	cp := *session
	ms.sessions[session.ID] = &cp
	return nil
}

func (ms *MemorySessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	session, ok := ms.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (ms *MemorySessionStore) SaveSegments(ctx context.Context, id, channel string, segments []api.Segment) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if _, ok := ms.sessions[id]; !ok {
		return ErrNotFound
	}
	cp := make([]api.Segment, len(segments))
	copy(cp, segments)
	ms.segments[channelKey(id, channel)] = cp
	return nil
}

func (ms *MemorySessionStore) GetSegments(ctx context.Context, id, channel string) ([]api.Segment, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	if _, ok := ms.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	segments := ms.segments[channelKey(id, channel)]
	cp := make([]api.Segment, len(segments))
	copy(cp, segments)
	return cp, nil
}

func (ms *MemorySessionStore) SaveAudio(ctx context.Context, id, channel string, chunks [][]byte) error {
	goapp.Log.Debug().Str("id", id).Str("channel", channel).Msg("Save audio")
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if _, ok := ms.sessions[id]; !ok {
		return ErrNotFound
	}
	res, err := toWav(chunks)
	if err != nil {
		return fmt.Errorf("to wav: %w", err)
	}
	ms.audio[channelKey(id, channel)] = res
	return nil
}

func (ms *MemorySessionStore) GetAudio(ctx context.Context, id, channel string) ([]byte, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	data, ok := ms.audio[channelKey(id, channel)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (ms *MemorySessionStore) Close() error {
	return nil
}
