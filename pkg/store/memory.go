package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"lora-console/pkg/model"
)

const auditLimit = 500

// MemoryStore is the default in-process implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
	gateways map[string]model.Gateway
	audit    []model.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		gateways: make(map[string]model.Gateway),
	}
}

// ReplaceReports swaps in a new collection. The slice is owned by the store afterwards.
func (m *MemoryStore) ReplaceReports(reports []model.NodeReport, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = Snapshot{Reports: reports, FetchedAt: fetchedAt}
	return nil
}

func (m *MemoryStore) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, nil
}

func (m *MemoryStore) UpsertGateway(g model.Gateway) (model.Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(g, time.Now()), nil
}

func (m *MemoryStore) upsertLocked(g model.Gateway, now time.Time) model.Gateway {
	if existing, ok := m.gateways[g.ID]; ok {
		g.CreatedAt = existing.CreatedAt
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.Status == "" {
		g.Status = model.GatewayOffline
	}
	m.gateways[g.ID] = g
	return g
}

// ImportGateways stores all gateways or none of them.
func (m *MemoryStore) ImportGateways(list []model.Gateway) error {
	for i, g := range list {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("gateway %d: %w", i, err)
		}
	}
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range list {
		m.upsertLocked(g, now)
	}
	return nil
}

func (m *MemoryStore) ListGateways() ([]model.Gateway, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Gateway, 0, len(m.gateways))
	for _, g := range m.gateways {
		out = append(out, g)
	}
	sortGateways(out)
	return out, nil
}

func (m *MemoryStore) GetGateway(id string) (model.Gateway, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gateways[id]
	return g, ok, nil
}

func (m *MemoryStore) DeleteGateway(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gateways[id]; !ok {
		return fmt.Errorf("gateway %s: %w", id, ErrNotFound)
	}
	delete(m.gateways, id)
	return nil
}

func (m *MemoryStore) AppendAudit(entry model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	m.audit = append(m.audit, entry)
	if len(m.audit) > auditLimit {
		m.audit = m.audit[len(m.audit)-auditLimit:]
	}
	return nil
}

func (m *MemoryStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.audit) {
		limit = len(m.audit)
	}
	out := make([]model.AuditEntry, 0, limit)
	start := len(m.audit) - limit
	for i := start; i < len(m.audit); i++ {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func sortGateways(list []model.Gateway) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
