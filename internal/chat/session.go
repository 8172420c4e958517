package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloud-ru/finassist-go/internal/metrics"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// MaxHistory число последних реплик, которые хранятся в сессии и уходят в модель
const MaxHistory = 20

// Session состояние одного диалога
type Session struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic,omitempty"`
	History  []Message `json:"history"`
	LastSeen time.Time `json:"lastSeen"`
}

// SessionStore хранит сессии чата в памяти
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore создает хранилище; сессии без активности дольше ttl удаляются при Sweep
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open возвращает копию существующей сессии или создает новую.
// Неизвестный или пустой id означает новую сессию с новым id.
func (s *SessionStore) Open(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.LastSeen = s.now()
		return copySession(sess)
	}

	sess := &Session{ID: uuid.NewString(), LastSeen: s.now()}
	s.sessions[sess.ID] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return copySession(sess)
}

// Get возвращает копию сессии
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return copySession(sess), true
}

// SetTopic меняет тему сессии
func (s *SessionStore) SetTopic(id, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Topic = topic
		sess.LastSeen = s.now()
	}
}

// Append добавляет реплики, оставляя последние MaxHistory
func (s *SessionStore) Append(id string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.History = append(sess.History, msgs...)
	if over := len(sess.History) - MaxHistory; over > 0 {
		sess.History = append([]Message(nil), sess.History[over:]...)
	}
	sess.LastSeen = s.now()
}

// Sweep удаляет просроченные сессии и возвращает их число
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

// Len число сессий в памяти
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartSweeper запускает периодическую очистку по cron-расписанию (например "@every 10m")
func (s *SessionStore) StartSweeper(spec string, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := s.Sweep(); n > 0 {
			logger.Info("expired chat sessions removed", "count", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("register session sweep: %w", err)
	}
	c.Start()
	return c, nil
}

func copySession(sess *Session) Session {
	out := *sess
	out.History = append([]Message(nil), sess.History...)
	return out
}
