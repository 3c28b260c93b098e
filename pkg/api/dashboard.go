package api

import (
	"net/http"

	"lora-console/pkg/model"
	"lora-console/pkg/nodestatus"
)

// sampleTraffic stands in for per-gateway counters until the network
// server exposes them.
var sampleTraffic = []model.TrafficPoint{
	{Gateway: "Gateway 1", Uplink: 240, Downlink: 400},
	{Gateway: "Gateway 2", Uplink: 139, Downlink: 300},
	{Gateway: "Gateway 3", Uplink: 980, Downlink: 200},
	{Gateway: "Gateway 4", Uplink: 390, Downlink: 278},
	{Gateway: "Gateway 5", Uplink: 480, Downlink: 189},
}

type dashboardResponse struct {
	ActiveGateways    int                  `json:"activeGateways"`
	TotalGateways     int                  `json:"totalGateways"`
	Applications      int                  `json:"applications"`
	ApplicationsStale bool                 `json:"applicationsUnavailable,omitempty"`
	Nodes             nodestatus.Summary   `json:"nodes"`
	Traffic           []model.TrafficPoint `json:"traffic"`
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var resp dashboardResponse
	gateways, err := s.Store.ListGateways()
	if err != nil {
		s.log(r.Context()).Error("list gateways failed", "error", err)
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}
	resp.TotalGateways = len(gateways)
	for _, g := range gateways {
		if g.Status == model.GatewayOnline {
			resp.ActiveGateways++
		}
	}
	snap, err := s.Store.Snapshot()
	if err != nil {
		s.log(r.Context()).Error("load snapshot failed", "error", err)
		http.Error(w, "failed to build dashboard", http.StatusInternalServerError)
		return
	}
	resp.Nodes = nodestatus.Summarize(snap.Reports, s.Now())

	// an unreachable network server should not blank the whole dashboard
	sess := sessionFrom(r.Context())
	apps, err := s.TTN.ListApplications(r.Context(), sess.TTNToken, sess.UserID)
	if err != nil {
		s.log(r.Context()).Warn("dashboard application count unavailable", "error", err)
		resp.ApplicationsStale = true
	}
	resp.Applications = len(apps)
	resp.Traffic = sampleTraffic
	writeJSON(w, http.StatusOK, resp)
}

// handleMQTT returns broker details; the password is the caller's own API key
// and is never stored or echoed.
func (s *server) handleMQTT(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.MQTT)
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Store.ListAudit(100)
	if err != nil {
		s.log(r.Context()).Error("list audit failed", "error", err)
		http.Error(w, "failed to list audit", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
