// Package eventdata implements the property pivot analytics engine: it
// discovers which attribute keys exist on events, aggregates value
// distributions for a chosen key, and pivots per-occurrence attribute
// records into combination groups. Two backend implementations (row store,
// columnar store) satisfy one contract and must return identical results
// for identical inputs.
package eventdata

import (
	"context"

	"proplens/internal/timeframe"
)

// Result caps. The catalog cap bounds dashboard rendering cost; the value
// cap bounds distribution charts.
const (
	maxCatalogRows = 500
	maxValueRows   = 100
)

// PropertySummary is one (eventName, propertyName) pair with its occurrence
// count.
type PropertySummary struct {
	EventName    string `json:"eventName"`
	PropertyName string `json:"propertyName"`
	Total        int64  `json:"total"`
}

// ValueCount is one decoded property value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Total int64  `json:"total"`
}

// CombinationGroup is one aggregated (axis value, other attributes) group
// produced by the pivot.
type CombinationGroup struct {
	SelectedPropertyValue string            `json:"selectedPropertyValue"`
	OtherProperties       map[string]string `json:"otherProperties"`
	EventCount            int64             `json:"eventCount"`
	DistinctSessions      int64             `json:"distinctSessions"`
	DistinctUsers         int64             `json:"distinctUsers"`
}

// PivotResult is one page of combination groups plus the property context
// the caller needs to label columns.
type PivotResult struct {
	Data             []CombinationGroup `json:"data"`
	Pagination       Pagination         `json:"pagination"`
	SelectedProperty string             `json:"selectedProperty"`
	AllProperties    []string           `json:"allProperties"`
}

// CatalogRequest asks which properties exist for a website in a range.
type CatalogRequest struct {
	WebsiteID    string
	Range        timeframe.Range
	PropertyName string // optional narrowing to one data key
	Filter       FilterSpec
}

// ValuesRequest asks for the value distribution of one property.
type ValuesRequest struct {
	WebsiteID    string
	Range        timeframe.Range
	EventName    string
	PropertyName string
	Filter       FilterSpec
}

// PivotRequest asks for the full pivot of one event's properties around a
// selected axis property.
type PivotRequest struct {
	WebsiteID    string
	Range        timeframe.Range
	EventName    string
	PropertyName string
	Page         PageParams
	Filter       FilterSpec
}

// Engine is the backend-agnostic contract of the pivot analytics engine.
// Implementations are stateless; every call is independently executable and
// carries its own context for cancellation.
type Engine interface {
	ListProperties(ctx context.Context, req CatalogRequest) ([]PropertySummary, error)
	ListValues(ctx context.Context, req ValuesRequest) ([]ValueCount, error)
	PivotDetails(ctx context.Context, req PivotRequest) (*PivotResult, error)
}

// PivotConfig is the injected pivot configuration: the secondary attribute
// names allowed into combination groups and the attribute counted as the
// occurrence's user.
type PivotConfig struct {
	Attributes    []string
	UserAttribute string
}

// validatePivotRequest rejects requests the engine cannot serve before any
// backend work happens.
func validatePivotRequest(req PivotRequest) error {
	if req.EventName == "" {
		return &InvalidArgumentError{Field: "eventName", Reason: "must not be empty"}
	}
	if req.PropertyName == "" {
		return &InvalidArgumentError{Field: "propertyName", Reason: "must not be empty"}
	}
	return nil
}

// The values distribution needs a property to aggregate; the event name
// only narrows it when given.
func validateValuesRequest(req ValuesRequest) error {
	if req.PropertyName == "" {
		return &InvalidArgumentError{Field: "propertyName", Reason: "must not be empty"}
	}
	return nil
}
