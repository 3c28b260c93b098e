package store

import (
	"errors"
	"time"

	"lora-console/pkg/model"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is the node report collection from one successful refresh.
// Reports must be treated as read-only; a refresh replaces the whole slice.
type Snapshot struct {
	Reports   []model.NodeReport `json:"reports"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// NodeStore defines the persistence layer for console state.
type NodeStore interface {
	ReplaceReports(reports []model.NodeReport, fetchedAt time.Time) error
	Snapshot() (Snapshot, error)
	UpsertGateway(model.Gateway) (model.Gateway, error)
	ImportGateways([]model.Gateway) error
	ListGateways() ([]model.Gateway, error)
	GetGateway(id string) (model.Gateway, bool, error)
	DeleteGateway(id string) error
	AppendAudit(model.AuditEntry) error
	ListAudit(limit int) ([]model.AuditEntry, error)
}

// NewMemory is a helper to construct the in-memory implementation without importing it directly.
func NewMemory() NodeStore {
	return NewMemoryStore()
}
