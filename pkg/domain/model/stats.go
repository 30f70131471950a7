package model

import "time"

// Stats are service counters exposed on the stats endpoint
type Stats struct {
	Received    int64     `json:"received"`
	Triaged     int64     `json:"triaged"`
	Errors      int64     `json:"errors"`
	Pending     int64     `json:"pending"`
	LastWebhook time.Time `json:"last_webhook,omitzero"`
}
