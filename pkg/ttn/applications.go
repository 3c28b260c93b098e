package ttn

import (
	"context"
	"net/http"

	"lora-console/pkg/model"
)

const defaultApplicationName = "Unnamed application"

func (c *Client) ListApplications(ctx context.Context, token, userID string) ([]model.Application, error) {
	var resp struct {
		Applications []model.Application `json:"applications"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/users/"+esc(userID)+"/applications", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Applications {
		if resp.Applications[i].Name == "" {
			resp.Applications[i].Name = defaultApplicationName
		}
	}
	return resp.Applications, nil
}

func (c *Client) CreateApplication(ctx context.Context, token, userID string, app model.Application) (model.Application, error) {
	if app.IDs.ApplicationID == "" {
		return model.Application{}, invalid("application id is required")
	}
	if app.Name == "" {
		app.Name = defaultApplicationName
	}
	var out model.Application
	err := c.do(ctx, token, http.MethodPost, "/users/"+esc(userID)+"/applications",
		map[string]interface{}{"application": app}, &out)
	return out, err
}

// UpdateApplication changes name and description.
func (c *Client) UpdateApplication(ctx context.Context, token string, app model.Application) (model.Application, error) {
	if app.IDs.ApplicationID == "" {
		return model.Application{}, invalid("application id is required")
	}
	var out model.Application
	err := c.do(ctx, token, http.MethodPut, "/applications/"+esc(app.IDs.ApplicationID),
		map[string]interface{}{
			"application": app,
			"field_mask":  map[string][]string{"paths": {"name", "description"}},
		}, &out)
	return out, err
}

func (c *Client) DeleteApplication(ctx context.Context, token, appID string) error {
	return c.do(ctx, token, http.MethodDelete, "/applications/"+esc(appID), nil, nil)
}

func (c *Client) ListAPIKeys(ctx context.Context, token, appID string) ([]model.APIKey, error) {
	var resp struct {
		APIKeys []model.APIKey `json:"api_keys"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/applications/"+esc(appID)+"/api-keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.APIKeys, nil
}

// CreateAPIKey returns the new key, including its secret which TTN shows only once.
func (c *Client) CreateAPIKey(ctx context.Context, token, appID, name string, rights []string) (model.APIKey, error) {
	if len(rights) == 0 {
		return model.APIKey{}, invalid("at least one right is required")
	}
	var out model.APIKey
	err := c.do(ctx, token, http.MethodPost, "/applications/"+esc(appID)+"/api-keys",
		map[string]interface{}{"name": name, "rights": rights}, &out)
	return out, err
}

func (c *Client) DeleteAPIKey(ctx context.Context, token, appID, keyID string) error {
	return c.do(ctx, token, http.MethodDelete, "/applications/"+esc(appID)+"/api-keys/"+esc(keyID), nil, nil)
}

// CreateDevice registers an OTAA end device on the configured servers.
func (c *Client) CreateDevice(ctx context.Context, token, appID string, dev model.EndDevice) (model.EndDevice, error) {
	if dev.IDs.DeviceID == "" || dev.IDs.DevEUI == "" {
		return model.EndDevice{}, invalid("device_id and dev_eui are required")
	}
	if dev.RootKeys == nil || dev.RootKeys.AppKey.Key == "" {
		return model.EndDevice{}, invalid("app_key is required")
	}
	dev.NetworkServerAddress = c.servers.Network
	dev.ApplicationServerAddress = c.servers.Application
	dev.JoinServerAddress = c.servers.Join
	var out model.EndDevice
	err := c.do(ctx, token, http.MethodPost, "/applications/"+esc(appID)+"/devices",
		map[string]interface{}{"end_device": dev}, &out)
	return out, err
}
