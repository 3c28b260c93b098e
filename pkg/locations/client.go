// Package locations fetches DT-723 node reports and keeps the working snapshot fresh.
package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lora-console/pkg/model"
)

// Client reads the node report collection from the locations service.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for url. token may be empty.
func NewClient(url, token string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// Fetch returns the well-formed reports in source order. Malformed records are
// dropped here so the classifier never sees them.
func (c *Client) Fetch(ctx context.Context) ([]model.NodeReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.token, "Bearer "))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch nodes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch nodes: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []wireReport
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	out := make([]model.NodeReport, 0, len(raw))
	dropped := 0
	for _, w := range raw {
		r, ok := w.report()
		if !ok {
			dropped++
			continue
		}
		out = append(out, r)
	}
	if dropped > 0 {
		c.logger.Warn("dropped malformed node reports", "dropped", dropped, "kept", len(out))
	}
	return out, nil
}

// wireReport is the locations service record before shape checks.
type wireReport struct {
	ID        string   `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Port      *int     `json:"fport"`
	CreatedAt string   `json:"createdAt"`
}

func (w wireReport) report() (model.NodeReport, bool) {
	if w.Latitude == nil || w.Longitude == nil || w.Port == nil {
		return model.NodeReport{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
	if err != nil {
		return model.NodeReport{}, false
	}
	r := model.NodeReport{
		ID:         w.ID,
		Latitude:   *w.Latitude,
		Longitude:  *w.Longitude,
		Port:       *w.Port,
		ReportedAt: ts,
	}
	return r, r.WellFormed()
}
