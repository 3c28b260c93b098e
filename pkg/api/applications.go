package api

import (
	"net/http"

	"lora-console/pkg/model"
)

func (s *server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	apps, err := s.TTN.ListApplications(r.Context(), sess.TTNToken, sess.UserID)
	if err != nil {
		s.upstreamError(w, r, "list applications", err)
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var app model.Application
	if err := decodeJSON(w, r, &app); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sess := sessionFrom(r.Context())
	out, err := s.TTN.CreateApplication(r.Context(), sess.TTNToken, sess.UserID, app)
	if err != nil {
		s.upstreamError(w, r, "create application", err)
		return
	}
	s.audit(r.Context(), "application.create", app.IDs.ApplicationID, app.Name)
	writeJSON(w, http.StatusCreated, out)
}

func (s *server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var app model.Application
	if err := decodeJSON(w, r, &app); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	app.IDs.ApplicationID = r.PathValue("id")
	sess := sessionFrom(r.Context())
	out, err := s.TTN.UpdateApplication(r.Context(), sess.TTNToken, app)
	if err != nil {
		s.upstreamError(w, r, "update application", err)
		return
	}
	s.audit(r.Context(), "application.update", app.IDs.ApplicationID, app.Name)
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess := sessionFrom(r.Context())
	if err := s.TTN.DeleteApplication(r.Context(), sess.TTNToken, id); err != nil {
		s.upstreamError(w, r, "delete application", err)
		return
	}
	s.audit(r.Context(), "application.delete", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	keys, err := s.TTN.ListAPIKeys(r.Context(), sess.TTNToken, r.PathValue("id"))
	if err != nil {
		s.upstreamError(w, r, "list api keys", err)
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

type apiKeyRequest struct {
	Name   string   `json:"name"`
	Rights []string `json:"rights"`
}

func (s *server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	appID := r.PathValue("id")
	sess := sessionFrom(r.Context())
	key, err := s.TTN.CreateAPIKey(r.Context(), sess.TTNToken, appID, req.Name, req.Rights)
	if err != nil {
		s.upstreamError(w, r, "create api key", err)
		return
	}
	s.audit(r.Context(), "apikey.create", appID+"/"+key.ID, req.Name)
	writeJSON(w, http.StatusCreated, key)
}

func (s *server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	appID, keyID := r.PathValue("id"), r.PathValue("keyId")
	sess := sessionFrom(r.Context())
	if err := s.TTN.DeleteAPIKey(r.Context(), sess.TTNToken, appID, keyID); err != nil {
		s.upstreamError(w, r, "delete api key", err)
		return
	}
	s.audit(r.Context(), "apikey.delete", appID+"/"+keyID, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev model.EndDevice
	if err := decodeJSON(w, r, &dev); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	appID := r.PathValue("id")
	sess := sessionFrom(r.Context())
	out, err := s.TTN.CreateDevice(r.Context(), sess.TTNToken, appID, dev)
	if err != nil {
		s.upstreamError(w, r, "create device", err)
		return
	}
	s.audit(r.Context(), "device.create", appID+"/"+dev.IDs.DeviceID, dev.IDs.DevEUI)
	writeJSON(w, http.StatusCreated, out)
}
