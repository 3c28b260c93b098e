package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/model"
	"lora-console/pkg/nodestatus"
)

func seedNodes(t *testing.T, h *harness) {
	t.Helper()
	reports := []model.NodeReport{
		{ID: "A", Port: 17, ReportedAt: testNow.Add(-2 * time.Minute)},
		{ID: "B", Port: 18, ReportedAt: testNow.Add(-3 * 24 * time.Hour)},
		{ID: "C", Port: 17, ReportedAt: testNow.Add(-30 * time.Minute)},
		{ID: "D", Port: 5, ReportedAt: testNow.Add(-1 * time.Minute)},
	}
	require.NoError(t, h.store.ReplaceReports(reports, testNow.Add(-time.Minute)))
}

func nodeIDs(resp nodesResponse) []string {
	out := make([]string, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestNodesFilter(t *testing.T) {
	h := newHarness(t)
	seedNodes(t, h)
	token := h.login(t)

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"A", "B", "C", "D"}},
		{"?filter=all", []string{"A", "B", "C", "D"}},
		{"?filter=outage", []string{"A"}},
		{"?filter=active", []string{"B"}},
		{"?filter=inactive", []string{"C", "D"}},
	}
	for _, tc := range cases {
		rec := h.do(t, http.MethodGet, "/api/v1/dt723/nodes"+tc.query, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, tc.query)
		var resp nodesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tc.want, nodeIDs(resp), tc.query)
		assert.True(t, resp.EvaluatedAt.Equal(testNow))
	}
}

func TestNodesCarryStatusAndColor(t *testing.T) {
	h := newHarness(t)
	seedNodes(t, h)
	rec := h.do(t, http.MethodGet, "/api/v1/dt723/nodes?filter=outage", h.login(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp nodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, nodestatus.StatusOutageRisk, resp.Nodes[0].Status)
	assert.Equal(t, "red", resp.Nodes[0].Color)
	assert.Equal(t, nodestatus.SelectOutage, resp.Filter)
}

func TestNodesInvalidFilter(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/dt723/nodes?filter=offline", h.login(t), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNodesEmptySnapshot(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/dt723/nodes?filter=active", h.login(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nodes":[]`)
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	seedNodes(t, h)
	rec := h.do(t, http.MethodGet, "/api/v1/dt723/summary", h.login(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Summary nodestatus.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, nodestatus.Summary{Total: 4, OutageRisk: 1, Active: 1, Unknown: 2}, resp.Summary)
}
