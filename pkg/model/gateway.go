package model

import (
	"errors"
	"time"
)

// Gateway is a LoRaWAN gateway tracked in the console registry.
type Gateway struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FrequencyPlan string    `json:"frequencyPlan"` // e.g. EU868, AU915
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Altitude      float64   `json:"altitude"`
	Status        string    `json:"status"` // online/offline
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	GatewayOnline  = "online"
	GatewayOffline = "offline"
)

// Validate checks the fields every registry entry must carry.
func (g Gateway) Validate() error {
	switch {
	case g.ID == "":
		return errors.New("id is required")
	case g.Name == "":
		return errors.New("name is required")
	case g.FrequencyPlan == "":
		return errors.New("frequencyPlan is required")
	case g.Latitude < -90 || g.Latitude > 90:
		return errors.New("latitude out of range")
	case g.Longitude < -180 || g.Longitude > 180:
		return errors.New("longitude out of range")
	}
	if g.Status != "" && g.Status != GatewayOnline && g.Status != GatewayOffline {
		return errors.New("status must be online or offline")
	}
	return nil
}

// GatewayTemplate is served as the bulk import example.
func GatewayTemplate() []Gateway {
	return []Gateway{{
		ID:            "example-id",
		Name:          "Example Gateway",
		FrequencyPlan: "EU868",
		Status:        GatewayOffline,
	}}
}
