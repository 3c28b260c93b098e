package model

import "time"

// ApplicationIDs identifies an application on the network server.
type ApplicationIDs struct {
	ApplicationID string `json:"application_id"`
}

// Application mirrors the TTN v3 application resource.
type Application struct {
	IDs         ApplicationIDs `json:"ids"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// APIKey is an application API key. Key is only populated on creation.
type APIKey struct {
	ID        string     `json:"id"`
	Key       string     `json:"key,omitempty"`
	Name      string     `json:"name,omitempty"`
	Rights    []string   `json:"rights,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// EndDeviceIDs identifies a device within an application.
type EndDeviceIDs struct {
	DeviceID string `json:"device_id"`
	DevEUI   string `json:"dev_eui,omitempty"`
}

// KeyEnvelope wraps a root key value.
type KeyEnvelope struct {
	Key string `json:"key"`
}

// RootKeys carries the OTAA root keys of a device.
type RootKeys struct {
	AppKey KeyEnvelope `json:"app_key"`
}

// EndDevice mirrors the TTN v3 end device resource fields the console sets.
type EndDevice struct {
	IDs                      EndDeviceIDs `json:"ids"`
	RootKeys                 *RootKeys    `json:"root_keys,omitempty"`
	NetworkServerAddress     string       `json:"network_server_address,omitempty"`
	ApplicationServerAddress string       `json:"application_server_address,omitempty"`
	JoinServerAddress        string       `json:"join_server_address,omitempty"`
}

// User is the subset of the TTN user resource used for login validation.
type User struct {
	IDs struct {
		UserID string `json:"user_id"`
	} `json:"ids"`
	Name string `json:"name,omitempty"`
}
