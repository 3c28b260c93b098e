package api

import (
	"net/http"
	"time"

	"lora-console/pkg/nodestatus"
	"lora-console/pkg/store"
)

type nodesResponse struct {
	Filter      nodestatus.Selector         `json:"filter"`
	FetchedAt   time.Time                   `json:"fetchedAt"`
	EvaluatedAt time.Time                   `json:"evaluatedAt"`
	Nodes       []nodestatus.ClassifiedNode `json:"nodes"`
}

// selectorParam reads ?filter=, treating a missing value as all.
func selectorParam(r *http.Request) (nodestatus.Selector, error) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		return nodestatus.SelectAll, nil
	}
	return nodestatus.ParseSelector(raw)
}

// filteredView classifies one snapshot against a single instant.
func filteredView(snap store.Snapshot, sel nodestatus.Selector, now time.Time) (nodesResponse, error) {
	kept, err := nodestatus.FilterNodes(snap.Reports, sel, now)
	if err != nil {
		return nodesResponse{}, err
	}
	return nodesResponse{
		Filter:      sel,
		FetchedAt:   snap.FetchedAt,
		EvaluatedAt: now,
		Nodes:       nodestatus.Annotate(kept, now),
	}, nil
}

func (s *server) handleNodes(w http.ResponseWriter, r *http.Request) {
	sel, err := selectorParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.Store.Snapshot()
	if err != nil {
		s.log(r.Context()).Error("load snapshot failed", "error", err)
		http.Error(w, "failed to load nodes", http.StatusInternalServerError)
		return
	}
	resp, err := filteredView(snap, sel, s.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Snapshot()
	if err != nil {
		s.log(r.Context()).Error("load snapshot failed", "error", err)
		http.Error(w, "failed to load nodes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fetchedAt": snap.FetchedAt,
		"summary":   nodestatus.Summarize(snap.Reports, s.Now()),
	})
}
