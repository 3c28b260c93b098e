//go:build consul

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	consulapi "github.com/hashicorp/consul/api"

	"lora-console/pkg/model"
)

const (
	gatewayPrefix = "lora-console/gateways/"
	auditPrefix   = "lora-console/audit/"
	reportsKey    = "lora-console/reports"
)

var errConsulUnconfigured = errors.New("consul client not configured")

// ConsulStore keeps console state in the Consul KV store.
type ConsulStore struct {
	cli *consulapi.Client
}

// NewConsulStore creates a Consul-backed store (requires build tag consul).
func NewConsulStore(addr string) NodeStore {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, _ := consulapi.NewClient(cfg) // runtime calls report connection problems
	return &ConsulStore{cli: cli}
}

func (s *ConsulStore) put(key string, v interface{}) error {
	if s.cli == nil {
		return errConsulUnconfigured
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.cli.KV().Put(&consulapi.KVPair{Key: key, Value: b}, nil)
	return err
}

func (s *ConsulStore) ReplaceReports(reports []model.NodeReport, fetchedAt time.Time) error {
	return s.put(reportsKey, Snapshot{Reports: reports, FetchedAt: fetchedAt})
}

func (s *ConsulStore) Snapshot() (Snapshot, error) {
	if s.cli == nil {
		return Snapshot{}, errConsulUnconfigured
	}
	kv, _, err := s.cli.KV().Get(reportsKey, nil)
	if err != nil || kv == nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(kv.Value, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *ConsulStore) UpsertGateway(g model.Gateway) (model.Gateway, error) {
	if existing, ok, err := s.GetGateway(g.ID); err != nil {
		return g, err
	} else if ok {
		g.CreatedAt = existing.CreatedAt
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if g.Status == "" {
		g.Status = model.GatewayOffline
	}
	return g, s.put(gatewayPrefix+g.ID, g)
}

// ImportGateways writes all gateways in one KV transaction.
func (s *ConsulStore) ImportGateways(list []model.Gateway) error {
	if s.cli == nil {
		return errConsulUnconfigured
	}
	ops := make(consulapi.KVTxnOps, 0, len(list))
	now := time.Now()
	for i, g := range list {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("gateway %d: %w", i, err)
		}
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		if g.Status == "" {
			g.Status = model.GatewayOffline
		}
		b, err := json.Marshal(g)
		if err != nil {
			return err
		}
		ops = append(ops, &consulapi.KVTxnOp{Verb: consulapi.KVSet, Key: gatewayPrefix + g.ID, Value: b})
	}
	ok, resp, _, err := s.cli.KV().Txn(ops, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("gateway import rolled back: %d errors", len(resp.Errors))
	}
	return nil
}

func (s *ConsulStore) ListGateways() ([]model.Gateway, error) {
	if s.cli == nil {
		return nil, errConsulUnconfigured
	}
	pairs, _, err := s.cli.KV().List(gatewayPrefix, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Gateway, 0, len(pairs))
	for _, p := range pairs {
		var g model.Gateway
		if err := json.Unmarshal(p.Value, &g); err == nil {
			out = append(out, g)
		}
	}
	sortGateways(out)
	return out, nil
}

func (s *ConsulStore) GetGateway(id string) (model.Gateway, bool, error) {
	if s.cli == nil {
		return model.Gateway{}, false, errConsulUnconfigured
	}
	kv, _, err := s.cli.KV().Get(gatewayPrefix+id, nil)
	if err != nil || kv == nil {
		return model.Gateway{}, false, err
	}
	var g model.Gateway
	if err := json.Unmarshal(kv.Value, &g); err != nil {
		return model.Gateway{}, false, err
	}
	return g, true, nil
}

func (s *ConsulStore) DeleteGateway(id string) error {
	if _, ok, err := s.GetGateway(id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("gateway %s: %w", id, ErrNotFound)
	}
	_, err := s.cli.KV().Delete(gatewayPrefix+id, nil)
	return err
}

func (s *ConsulStore) AppendAudit(entry model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	key := fmt.Sprintf("%s%020d-%s", auditPrefix, entry.Timestamp.UnixNano(), entry.Target)
	return s.put(key, entry)
}

func (s *ConsulStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	if s.cli == nil {
		return nil, errConsulUnconfigured
	}
	pairs, _, err := s.cli.KV().List(auditPrefix, nil)
	if err != nil {
		return nil, err
	}
	var out []model.AuditEntry
	for _, p := range pairs {
		var e model.AuditEntry
		if err := json.Unmarshal(p.Value, &e); err == nil {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// StartWatch invokes onChange whenever another console instance replaces the snapshot.
func (s *ConsulStore) StartWatch(ctx context.Context, onChange func()) {
	if s.cli == nil {
		return
	}
	go func() {
		q := &consulapi.QueryOptions{}
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			kv, meta, err := s.cli.KV().Get(reportsKey, q.WithContext(ctx))
			if err != nil {
				time.Sleep(time.Second)
				continue
			}
			if q.WaitIndex != 0 && kv != nil && meta.LastIndex != q.WaitIndex {
				onChange()
			}
			q.WaitIndex = meta.LastIndex
		}
	}()
}
