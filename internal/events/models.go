// Package events defines the stored shape of event telemetry: one row per
// recorded occurrence plus one row per attached property. Rows are written
// by the ingestion pipeline and are read-only for the query engine.
package events

import "time"

// DataType discriminates how a property value is stored and decoded.
type DataType uint8

const (
	DataTypeString  DataType = 1
	DataTypeNumber  DataType = 2
	DataTypeBoolean DataType = 3
	DataTypeDate    DataType = 4
)

// Event represents one recorded event occurrence in the row store.
// Occurrence attributes (url, browser, country, ...) are denormalized onto
// the row because the standard filters predicate over them directly.
type Event struct {
	EventID        string    `gorm:"primaryKey;size:36" json:"event_id"`
	WebsiteID      string    `gorm:"index:idx_events_website_created;size:36;not null" json:"website_id"`
	SessionID      string    `gorm:"index;size:36;not null" json:"session_id"`
	EventName      string    `gorm:"index;not null" json:"event_name"`
	Tag            string    `json:"tag"`
	URLPath        string    `json:"url_path"`
	URLQuery       string    `json:"url_query"`
	ReferrerPath   string    `json:"referrer_path"`
	ReferrerDomain string    `json:"referrer_domain"`
	PageTitle      string    `json:"page_title"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	Device         string    `json:"device"`
	Country        string    `json:"country"`
	Region         string    `json:"region"`
	City           string    `json:"city"`
	Hostname       string    `json:"hostname"`
	CreatedAt      time.Time `gorm:"index:idx_events_website_created;not null" json:"created_at"`
}

func (Event) TableName() string { return "events" }

// EventData represents one property attached to an occurrence. A given
// (event_id, data_key) pair is unique: an occurrence carries at most one
// value per attribute name.
type EventData struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	WebsiteID   string     `gorm:"index;size:36;not null"`
	EventID     string     `gorm:"uniqueIndex:idx_event_data_event_key;size:36;not null"`
	SessionID   string     `gorm:"index;size:36;not null"`
	EventName   string     `gorm:"index;not null"`
	DataKey     string     `gorm:"uniqueIndex:idx_event_data_event_key;not null"`
	DataType    DataType   `gorm:"not null"`
	StringValue string     // string and numeric payloads (numeric keeps the upstream rendering)
	NumberValue float64    // numeric payload for range queries; not used for display
	DateValue   *time.Time // temporal payload
	CreatedAt   time.Time  `gorm:"index;not null"`
}

func (EventData) TableName() string { return "event_data" }

// ColumnarEventData is the flat, scan-oriented shape of a property row in
// the columnar store. Occurrence attributes are repeated on every property
// row so aggregations run without joins.
type ColumnarEventData struct {
	WebsiteID      string    `ch:"website_id"`
	EventID        string    `ch:"event_id"`
	SessionID      string    `ch:"session_id"`
	EventName      string    `ch:"event_name"`
	URLPath        string    `ch:"url_path"`
	URLQuery       string    `ch:"url_query"`
	ReferrerPath   string    `ch:"referrer_path"`
	ReferrerDomain string    `ch:"referrer_domain"`
	PageTitle      string    `ch:"page_title"`
	Browser        string    `ch:"browser"`
	OS             string    `ch:"os"`
	Device         string    `ch:"device"`
	Country        string    `ch:"country"`
	Region         string    `ch:"region"`
	City           string    `ch:"city"`
	Hostname       string    `ch:"hostname"`
	DataKey        string    `ch:"data_key"`
	DataType       uint8     `ch:"data_type"`
	StringValue    string    `ch:"string_value"`
	DateValue      time.Time `ch:"date_value"`
	CreatedAt      time.Time `ch:"created_at"`
}

// ColumnarWebsiteEvent is the occurrence companion table in the columnar
// store. Only the fields the engine reads are modeled; the tag column backs
// the free-text value filter.
type ColumnarWebsiteEvent struct {
	WebsiteID string    `ch:"website_id"`
	EventID   string    `ch:"event_id"`
	SessionID string    `ch:"session_id"`
	EventName string    `ch:"event_name"`
	Tag       string    `ch:"tag"`
	CreatedAt time.Time `ch:"created_at"`
}

// ColumnarOccurrence maps a row-store event onto the columnar occurrence
// shape.
func ColumnarOccurrence(e Event) ColumnarWebsiteEvent {
	return ColumnarWebsiteEvent{
		WebsiteID: e.WebsiteID,
		EventID:   e.EventID,
		SessionID: e.SessionID,
		EventName: e.EventName,
		Tag:       e.Tag,
		CreatedAt: e.CreatedAt,
	}
}

// ColumnarRows flattens an event and its properties into columnar property
// rows, repeating the occurrence attributes on every row so the columnar
// store can aggregate without joins. Rows without a temporal payload carry
// the Unix epoch in date_value: DateTime64 cannot represent Go's zero time.
func ColumnarRows(e Event, props []EventData) []ColumnarEventData {
	rows := make([]ColumnarEventData, len(props))
	for i, p := range props {
		row := ColumnarEventData{
			WebsiteID:      e.WebsiteID,
			EventID:        e.EventID,
			SessionID:      e.SessionID,
			EventName:      e.EventName,
			URLPath:        e.URLPath,
			URLQuery:       e.URLQuery,
			ReferrerPath:   e.ReferrerPath,
			ReferrerDomain: e.ReferrerDomain,
			PageTitle:      e.PageTitle,
			Browser:        e.Browser,
			OS:             e.OS,
			Device:         e.Device,
			Country:        e.Country,
			Region:         e.Region,
			City:           e.City,
			Hostname:       e.Hostname,
			DataKey:        p.DataKey,
			DataType:       uint8(p.DataType),
			StringValue:    p.StringValue,
			CreatedAt:      e.CreatedAt,
		}
		if p.DateValue != nil {
			row.DateValue = *p.DateValue
		} else {
			row.DateValue = time.Unix(0, 0).UTC()
		}
		rows[i] = row
	}
	return rows
}
