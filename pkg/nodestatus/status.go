// Package nodestatus classifies DT-723 node reports and narrows node lists by status.
package nodestatus

import (
	"errors"
	"fmt"
	"time"

	"lora-console/pkg/model"
)

// ErrInvalidArgument is returned for selector values outside the supported set.
var ErrInvalidArgument = errors.New("invalid argument")

// StatusTag is the derived status of a node at a given instant.
type StatusTag string

const (
	StatusOutageRisk StatusTag = "outage-risk"
	StatusActive     StatusTag = "active"
	StatusUnknown    StatusTag = "unknown"
)

const (
	// PortOutage is the uplink port the firmware uses to signal an outage event.
	PortOutage = 17
	// PortHeartbeat is the uplink port used for routine liveness reports.
	PortHeartbeat = 18

	OutageWindow    = 10 * time.Minute
	HeartbeatWindow = 7 * 24 * time.Hour
)

// Classify maps a report to its status at now. The first matching rule wins.
func Classify(r model.NodeReport, now time.Time) StatusTag {
	age := now.Sub(r.ReportedAt)
	switch {
	case r.Port == PortOutage && within(age, OutageWindow):
		return StatusOutageRisk
	case r.Port == PortHeartbeat && within(age, HeartbeatWindow):
		return StatusActive
	default:
		return StatusUnknown
	}
}

// within reports whether age falls in [0, limit).
func within(age, limit time.Duration) bool {
	return age >= 0 && age < limit
}

// Color returns the marker color used by the map view.
func Color(tag StatusTag) string {
	switch tag {
	case StatusOutageRisk:
		return "red"
	case StatusActive:
		return "green"
	default:
		return "gray"
	}
}

// Selector narrows a node list to one status.
type Selector string

const (
	SelectAll      Selector = "all"
	SelectActive   Selector = "active"
	SelectInactive Selector = "inactive"
	SelectOutage   Selector = "outage"
)

// ParseSelector parses a filter value coming from the UI.
func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case SelectAll, SelectActive, SelectInactive, SelectOutage:
		return Selector(s), nil
	default:
		return "", fmt.Errorf("unknown node filter %q: %w", s, ErrInvalidArgument)
	}
}

// tag returns the status a selector keeps; ok is false for SelectAll.
func (s Selector) tag() (StatusTag, bool, error) {
	switch s {
	case SelectAll:
		return "", false, nil
	case SelectActive:
		return StatusActive, true, nil
	case SelectInactive:
		return StatusUnknown, true, nil
	case SelectOutage:
		return StatusOutageRisk, true, nil
	default:
		return "", false, fmt.Errorf("unknown node filter %q: %w", string(s), ErrInvalidArgument)
	}
}

// FilterNodes returns the reports whose status at now matches the selector,
// keeping their original order. SelectAll returns reports unchanged.
// All reports are judged against the same now.
func FilterNodes(reports []model.NodeReport, sel Selector, now time.Time) ([]model.NodeReport, error) {
	want, narrow, err := sel.tag()
	if err != nil {
		return nil, err
	}
	if !narrow {
		return reports, nil
	}
	out := make([]model.NodeReport, 0, len(reports))
	for _, r := range reports {
		if Classify(r, now) == want {
			out = append(out, r)
		}
	}
	return out, nil
}
