package nodestatus

import (
	"time"

	"lora-console/pkg/model"
)

// ClassifiedNode pairs a report with its status for presentation.
type ClassifiedNode struct {
	model.NodeReport
	Status StatusTag `json:"status"`
	Color  string    `json:"color"`
}

// Annotate classifies every report against now, preserving order.
func Annotate(reports []model.NodeReport, now time.Time) []ClassifiedNode {
	out := make([]ClassifiedNode, 0, len(reports))
	for _, r := range reports {
		tag := Classify(r, now)
		out = append(out, ClassifiedNode{NodeReport: r, Status: tag, Color: Color(tag)})
	}
	return out
}

// Summary counts nodes per status.
type Summary struct {
	Total      int `json:"total"`
	OutageRisk int `json:"outageRisk"`
	Active     int `json:"active"`
	Unknown    int `json:"unknown"`
}

// Summarize counts reports per status at now.
func Summarize(reports []model.NodeReport, now time.Time) Summary {
	s := Summary{Total: len(reports)}
	for _, r := range reports {
		switch Classify(r, now) {
		case StatusOutageRisk:
			s.OutageRisk++
		case StatusActive:
			s.Active++
		default:
			s.Unknown++
		}
	}
	return s
}
