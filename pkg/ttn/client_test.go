package ttn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/model"
)

type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func fakeTTN(t *testing.T, status int, reply string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/api/v3/", time.Second, false, ServerAddresses{Network: "ns", Application: "as", Join: "js"})
	return c, &calls
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "Bearer abc", BearerToken("abc"))
	assert.Equal(t, "Bearer abc", BearerToken("Bearer abc"))
	assert.Equal(t, "Bearer abc", BearerToken("  abc "))
}

func TestGetUser(t *testing.T) {
	c, calls := fakeTTN(t, http.StatusOK, `{"ids":{"user_id":"alice"},"name":"Alice"}`)
	u, err := c.GetUser(context.Background(), "NNSXS.tok", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.IDs.UserID)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/v3/users/alice", (*calls)[0].Path)
	assert.Equal(t, "Bearer NNSXS.tok", (*calls)[0].Auth)
}

func TestErrorsMapToSentinels(t *testing.T) {
	c, _ := fakeTTN(t, http.StatusForbidden, `{"code":7,"message":"error:pkg/auth:insufficient_rights"}`)
	_, err := c.GetUser(context.Background(), "t", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "error:pkg/auth:insufficient_rights", apiErr.Message)

	c, _ = fakeTTN(t, http.StatusNotFound, `not here`)
	assert.ErrorIs(t, c.DeleteApplication(context.Background(), "t", "app"), ErrNotFound)

	c, _ = fakeTTN(t, http.StatusInternalServerError, `{}`)
	err = c.DeleteApplication(context.Background(), "t", "app")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestListApplicationsDefaultsName(t *testing.T) {
	c, calls := fakeTTN(t, http.StatusOK, `{"applications":[{"ids":{"application_id":"a1"},"name":"Meters"},{"ids":{"application_id":"a2"}}]}`)
	apps, err := c.ListApplications(context.Background(), "t", "alice")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Meters", apps[0].Name)
	assert.Equal(t, defaultApplicationName, apps[1].Name)
	assert.Equal(t, "/api/v3/users/alice/applications", (*calls)[0].Path)
}

func TestCreateAndUpdateApplication(t *testing.T) {
	c, calls := fakeTTN(t, http.StatusOK, `{"ids":{"application_id":"a1"},"name":"Meters"}`)
	_, err := c.CreateApplication(context.Background(), "t", "alice", model.Application{})
	assert.Error(t, err)

	app, err := c.CreateApplication(context.Background(), "t", "alice", model.Application{IDs: model.ApplicationIDs{ApplicationID: "a1"}})
	require.NoError(t, err)
	assert.Equal(t, "a1", app.IDs.ApplicationID)
	sent := (*calls)[0].Body["application"].(map[string]interface{})
	assert.Equal(t, defaultApplicationName, sent["name"])

	_, err = c.UpdateApplication(context.Background(), "t", model.Application{IDs: model.ApplicationIDs{ApplicationID: "a1"}, Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, (*calls)[1].Method)
	assert.Equal(t, "/api/v3/applications/a1", (*calls)[1].Path)
	assert.Contains(t, (*calls)[1].Body, "field_mask")
}

func TestAPIKeys(t *testing.T) {
	c, calls := fakeTTN(t, http.StatusOK, `{"api_keys":[{"id":"k1","name":"mqtt","rights":["RIGHT_APPLICATION_TRAFFIC_READ"]}]}`)
	keys, err := c.ListAPIKeys(context.Background(), "t", "a1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "k1", keys[0].ID)

	_, err = c.CreateAPIKey(context.Background(), "t", "a1", "mqtt", nil)
	assert.Error(t, err)
	_, err = c.CreateAPIKey(context.Background(), "t", "a1", "mqtt", []string{"RIGHT_APPLICATION_ALL"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteAPIKey(context.Background(), "t", "a1", "k1"))

	assert.Equal(t, "/api/v3/applications/a1/api-keys", (*calls)[1].Path)
	assert.Equal(t, "mqtt", (*calls)[1].Body["name"])
	assert.Equal(t, http.MethodDelete, (*calls)[2].Method)
	assert.Equal(t, "/api/v3/applications/a1/api-keys/k1", (*calls)[2].Path)
}

func TestCreateDeviceStampsServers(t *testing.T) {
	c, calls := fakeTTN(t, http.StatusOK, `{"ids":{"device_id":"dt723-01","dev_eui":"70B3D57ED0000001"}}`)
	_, err := c.CreateDevice(context.Background(), "t", "a1", model.EndDevice{IDs: model.EndDeviceIDs{DeviceID: "dt723-01"}})
	assert.Error(t, err)

	dev := model.EndDevice{
		IDs:      model.EndDeviceIDs{DeviceID: "dt723-01", DevEUI: "70B3D57ED0000001"},
		RootKeys: &model.RootKeys{AppKey: model.KeyEnvelope{Key: "00112233445566778899AABBCCDDEEFF"}},
	}
	out, err := c.CreateDevice(context.Background(), "t", "a1", dev)
	require.NoError(t, err)
	assert.Equal(t, "dt723-01", out.IDs.DeviceID)

	sent := (*calls)[0].Body["end_device"].(map[string]interface{})
	assert.Equal(t, "ns", sent["network_server_address"])
	assert.Equal(t, "as", sent["application_server_address"])
	assert.Equal(t, "js", sent["join_server_address"])
	assert.Equal(t, "/api/v3/applications/a1/devices", (*calls)[0].Path)
}
