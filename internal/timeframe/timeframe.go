// Package timeframe provides the inclusive UTC date ranges the query
// engine operates over.
package timeframe

import (
	"fmt"
	"time"
)

// Range represents an inclusive period between two points in time.
// Both bounds are stored in UTC; storage comparisons use BETWEEN semantics.
type Range struct {
	From time.Time
	To   time.Time
}

// New validates and creates a Range from two instants.
func New(from, to time.Time) (Range, error) {
	if from.IsZero() || to.IsZero() {
		return Range{}, fmt.Errorf("timeframe: bounds must be set")
	}
	if to.Before(from) {
		return Range{}, fmt.Errorf("timeframe: range end %s precedes start %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return Range{From: from.UTC(), To: to.UTC()}, nil
}

// FromEpochMillis creates a Range from epoch-millisecond bounds as supplied
// by the HTTP API (startAt/endAt query params).
func FromEpochMillis(startAt, endAt int64) (Range, error) {
	return New(time.UnixMilli(startAt), time.UnixMilli(endAt))
}

// Duration returns the length of the range.
func (r Range) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// Contains reports whether t falls inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
