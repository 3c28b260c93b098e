package api

import (
	"errors"
	"fmt"
	"net/http"

	"lora-console/pkg/model"
	"lora-console/pkg/store"
)

func (s *server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.ListGateways()
	if err != nil {
		s.log(r.Context()).Error("list gateways failed", "error", err)
		http.Error(w, "failed to list gateways", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Gateway{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) handleCreateGateway(w http.ResponseWriter, r *http.Request) {
	var g model.Gateway
	if err := decodeJSON(w, r, &g); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := g.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := s.Store.UpsertGateway(g)
	if err != nil {
		s.log(r.Context()).Error("save gateway failed", "gateway", g.ID, "error", err)
		http.Error(w, "failed to save gateway", http.StatusInternalServerError)
		return
	}
	s.audit(r.Context(), "gateway.upsert", out.ID, out.Name)
	writeJSON(w, http.StatusCreated, out)
}

func (s *server) handleDeleteGateway(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.Store.DeleteGateway(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "gateway not found", http.StatusNotFound)
		return
	case err != nil:
		s.log(r.Context()).Error("delete gateway failed", "gateway", id, "error", err)
		http.Error(w, "failed to delete gateway", http.StatusInternalServerError)
		return
	}
	s.audit(r.Context(), "gateway.delete", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// handleImportGateways accepts a JSON array; nothing is stored unless every entry is valid.
func (s *server) handleImportGateways(w http.ResponseWriter, r *http.Request) {
	var list []model.Gateway
	if err := decodeJSON(w, r, &list); err != nil {
		http.Error(w, "file must contain a JSON array of gateways", http.StatusBadRequest)
		return
	}
	if len(list) == 0 {
		http.Error(w, "no gateways to import", http.StatusBadRequest)
		return
	}
	for i, g := range list {
		if err := g.Validate(); err != nil {
			http.Error(w, fmt.Sprintf("gateway %d: %v", i+1, err), http.StatusBadRequest)
			return
		}
	}
	if err := s.Store.ImportGateways(list); err != nil {
		s.log(r.Context()).Error("import gateways failed", "count", len(list), "error", err)
		http.Error(w, "failed to import gateways", http.StatusInternalServerError)
		return
	}
	s.audit(r.Context(), "gateway.import", "", fmt.Sprintf("%d gateways", len(list)))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(list)})
}

func (s *server) handleGatewayTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="gateway_template.json"`)
	writeJSON(w, http.StatusOK, model.GatewayTemplate())
}
