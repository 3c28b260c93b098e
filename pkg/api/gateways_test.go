package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/model"
)

func gateway(id string) model.Gateway {
	return model.Gateway{ID: id, Name: "Gateway " + id, FrequencyPlan: "AU915", Latitude: -33.4, Longitude: -70.6}
}

func TestGatewayLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	rec := h.do(t, http.MethodPost, "/api/v1/gateways", token, gateway("gw1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Gateway
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.GatewayOffline, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	rec = h.do(t, http.MethodGet, "/api/v1/gateways", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Gateway
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = h.do(t, http.MethodDelete, "/api/v1/gateways/gw1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/v1/gateways/gw1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateGatewayValidates(t *testing.T) {
	h := newHarness(t)
	bad := gateway("gw1")
	bad.Latitude = 120
	rec := h.do(t, http.MethodPost, "/api/v1/gateways", h.login(t), bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "latitude")
}

func TestImportGateways(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	bad := gateway("gw3")
	bad.FrequencyPlan = ""
	rec := h.do(t, http.MethodPost, "/api/v1/gateways/import", token, []model.Gateway{gateway("gw1"), bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway 2")
	list, err := h.store.ListGateways()
	require.NoError(t, err)
	assert.Empty(t, list)

	rec = h.do(t, http.MethodPost, "/api/v1/gateways/import", token, map[string]string{"id": "not-an-array"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/v1/gateways/import", token, []model.Gateway{gateway("gw1"), gateway("gw2")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"imported":2}`, rec.Body.String())
	list, err = h.store.ListGateways()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGatewayTemplate(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/gateways/template", h.login(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gateway_template.json")
	var tmpl []model.Gateway
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))
	require.Len(t, tmpl, 1)
	assert.Equal(t, "EU868", tmpl[0].FrequencyPlan)
}
