package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/model"
)

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/dt723/stream" + query
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readNodes(t *testing.T, c *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg StreamMessage
	require.NoError(t, c.ReadJSON(&msg))
	assert.Equal(t, "nodes", msg.Type)
	return msg
}

func TestStreamSendsFilteredSnapshotAndRefreshes(t *testing.T) {
	h := newHarness(t)
	seedNodes(t, h)
	token := h.login(t)
	srv := httptest.NewServer(h.mux)
	defer srv.Close()

	c := dialStream(t, srv, "?filter=outage&access_token="+token)
	first := readNodes(t, c)
	assert.Equal(t, []string{"A"}, nodeIDs(first.Nodes))

	require.Eventually(t, func() bool { return h.stream.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	fresh := []model.NodeReport{
		{ID: "E", Port: 17, ReportedAt: testNow.Add(-time.Minute)},
		{ID: "F", Port: 17, ReportedAt: testNow.Add(-time.Second)},
	}
	require.NoError(t, h.store.ReplaceReports(fresh, testNow))
	snap, err := h.store.Snapshot()
	require.NoError(t, err)
	h.stream.Broadcast(snap)

	second := readNodes(t, c)
	assert.Equal(t, []string{"E", "F"}, nodeIDs(second.Nodes))
	assert.True(t, second.Nodes.FetchedAt.Equal(testNow))
}

func TestStreamRejectsBadFilterAndMissingToken(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)
	srv := httptest.NewServer(h.mux)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/dt723/stream"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?filter=all", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?filter=bogus&access_token="+token, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
