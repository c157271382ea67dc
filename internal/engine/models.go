package engine

import (
	"time"

	"campaign-scheduler/internal/customer"
)

// Campaign is one outbound message policy of a scheduling pass.
type Campaign struct {
	TemplateName string
	Filter       customer.Predicate
	SendTime     time.Time
	Priority     int // lower is evaluated first
}

// Assignment pairs a campaign with the single customer it claimed.
type Assignment struct {
	Campaign *Campaign
	Customer *customer.Customer
}
