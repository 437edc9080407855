package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proplens/internal/events"
)

func TestColumnarOccurrence(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	ev := events.Event{
		EventID:   "ev-1",
		WebsiteID: "w1",
		SessionID: "s1",
		EventName: "purchase",
		Tag:       "beta",
		CreatedAt: at,
	}

	occ := events.ColumnarOccurrence(ev)

	assert.Equal(t, "w1", occ.WebsiteID)
	assert.Equal(t, "ev-1", occ.EventID)
	assert.Equal(t, "s1", occ.SessionID)
	assert.Equal(t, "purchase", occ.EventName)
	assert.Equal(t, "beta", occ.Tag)
	assert.Equal(t, at, occ.CreatedAt)
}

func TestColumnarRowsRepeatsOccurrenceAttributes(t *testing.T) {
	at := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	renewal := time.Date(2025, 4, 1, 9, 15, 0, 0, time.UTC)
	ev := events.Event{
		EventID:   "ev-1",
		WebsiteID: "w1",
		SessionID: "s1",
		EventName: "purchase",
		URLPath:   "/checkout",
		Browser:   "firefox",
		Country:   "DE",
		CreatedAt: at,
	}
	props := []events.EventData{
		{DataKey: "org_name", DataType: events.DataTypeString, StringValue: "Acme"},
		{DataKey: "amount", DataType: events.DataTypeNumber, StringValue: "12.0000", NumberValue: 12},
		{DataKey: "renewal_date", DataType: events.DataTypeDate, DateValue: &renewal},
	}

	rows := events.ColumnarRows(ev, props)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.Equal(t, "w1", row.WebsiteID)
		assert.Equal(t, "ev-1", row.EventID)
		assert.Equal(t, "s1", row.SessionID)
		assert.Equal(t, "purchase", row.EventName)
		assert.Equal(t, "/checkout", row.URLPath)
		assert.Equal(t, "firefox", row.Browser)
		assert.Equal(t, "DE", row.Country)
		assert.Equal(t, at, row.CreatedAt)
	}

	assert.Equal(t, "org_name", rows[0].DataKey)
	assert.Equal(t, uint8(events.DataTypeString), rows[0].DataType)
	assert.Equal(t, "Acme", rows[0].StringValue)
	assert.Equal(t, time.Unix(0, 0).UTC(), rows[0].DateValue)

	assert.Equal(t, "amount", rows[1].DataKey)
	assert.Equal(t, uint8(events.DataTypeNumber), rows[1].DataType)
	assert.Equal(t, "12.0000", rows[1].StringValue)

	assert.Equal(t, "renewal_date", rows[2].DataKey)
	assert.Equal(t, uint8(events.DataTypeDate), rows[2].DataType)
	assert.Equal(t, renewal, rows[2].DateValue)
}

func TestColumnarRowsEmptyProps(t *testing.T) {
	rows := events.ColumnarRows(events.Event{EventID: "ev-1"}, nil)
	assert.Empty(t, rows)
}
