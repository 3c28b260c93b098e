package model

import "time"

// NodeReport is the latest known location/status record for a DT-723 sensor.
type NodeReport struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Port       int       `json:"fport"` // uplink port, used as event-type discriminant
	ReportedAt time.Time `json:"createdAt"`
}

// WellFormed reports whether the record can be handed to the classifier.
func (r NodeReport) WellFormed() bool {
	if r.ID == "" || r.Port < 0 || r.ReportedAt.IsZero() {
		return false
	}
	return r.Latitude >= -90 && r.Latitude <= 90 && r.Longitude >= -180 && r.Longitude <= 180
}
