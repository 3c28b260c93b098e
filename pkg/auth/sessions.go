package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"lora-console/pkg/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps operator sessions between requests.
type SessionStore interface {
	Put(ctx context.Context, s model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessions is the default store; sessions are lost on restart.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]model.Session)}
}

func (m *MemorySessions) Put(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// PruneExpired drops sessions past their expiry.
func (m *MemorySessions) PruneExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// GormSessions persists sessions in MySQL with the upstream token sealed.
type GormSessions struct {
	db     *gorm.DB
	sealer *Sealer
}

func NewGormSessions(db *gorm.DB, sealer *Sealer) *GormSessions {
	return &GormSessions{db: db, sealer: sealer}
}

func (g *GormSessions) Put(ctx context.Context, s model.Session) error {
	sealed, err := g.sealer.Seal(s.TTNToken)
	if err != nil {
		return fmt.Errorf("seal session token: %w", err)
	}
	s.SealedToken = sealed
	return g.db.WithContext(ctx).Save(&s).Error
}

func (g *GormSessions) Get(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	s.TTNToken, err = g.sealer.Open(s.SealedToken)
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}

func (g *GormSessions) Delete(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{}).Error
}

// PruneExpired removes sessions past their expiry.
func (g *GormSessions) PruneExpired(now time.Time) int {
	res := g.db.Where("expires_at <= ?", now).Delete(&model.Session{})
	return int(res.RowsAffected)
}
