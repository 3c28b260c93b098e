package locations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/logger"
)

const sample = `[
 {"id":"a","latitude":-25.5,"longitude":-54.6,"fport":17,"createdAt":"2024-05-01T11:55:00Z"},
 {"id":"b","latitude":-25.4,"longitude":-54.5,"fport":18,"createdAt":"2024-04-28T12:00:00.123Z"},
 {"id":"","latitude":-25.4,"longitude":-54.5,"fport":18,"createdAt":"2024-04-28T12:00:00Z"},
 {"id":"no-coords","fport":18,"createdAt":"2024-04-28T12:00:00Z"},
 {"id":"neg-port","latitude":1,"longitude":1,"fport":-3,"createdAt":"2024-04-28T12:00:00Z"},
 {"id":"bad-time","latitude":1,"longitude":1,"fport":18,"createdAt":"yesterday"},
 {"id":"far","latitude":123,"longitude":1,"fport":18,"createdAt":"2024-04-28T12:00:00Z"},
 {"id":"c","latitude":-25.3,"longitude":-54.4,"fport":5,"createdAt":"2024-05-01T12:00:00+02:00"}
]`

func TestFetchSendsBearerAndDropsMalformed(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Bearer secret", time.Second, logger.Discard())
	reports, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)

	var ids []string
	for _, r := range reports {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 17, reports[0].Port)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 55, 0, 0, time.UTC), reports[0].ReportedAt.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), reports[2].ReportedAt.UTC())
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second, nil).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second, nil).Fetch(context.Background())
	assert.ErrorContains(t, err, "decode nodes")
}
