package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marquee-ai/marquee/internal/domain"
)

// InMemoryStore keeps sessions in a mutex-guarded map. It is the
// default for interactive chat, where the process lifetime is the
// conversation lifetime.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return copySession(sess), nil
		}
	} else {
		id = uuid.New().String()
	}

	now := time.Now()
	sess := &domain.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	s.sessions[id] = sess
	return copySession(sess), nil
}

func (s *InMemoryStore) Append(_ context.Context, sessionID string, turn domain.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if want := len(sess.Turns) + 1; turn.Seq != want {
		return fmt.Errorf("memory: out-of-order append: seq %d, want %d", turn.Seq, want)
	}

	sess.Turns = append(sess.Turns, turn)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	turns := make([]domain.Turn, len(sess.Turns))
	copy(turns, sess.Turns)
	return turns, nil
}

func (s *InMemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
			Turns:     len(sess.Turns),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// copySession clones the session so callers cannot mutate stored turns.
func copySession(sess *domain.Session) *domain.Session {
	out := *sess
	out.Turns = make([]domain.Turn, len(sess.Turns))
	copy(out.Turns, sess.Turns)
	return &out
}
