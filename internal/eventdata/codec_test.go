package eventdata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"proplens/internal/eventdata"
	"proplens/internal/events"
)

func TestDecodeValueStringPassthrough(t *testing.T) {
	assert.Equal(t, "Acme", eventdata.DecodeValue(events.DataTypeString, "Acme", time.Time{}))
	assert.Equal(t, "", eventdata.DecodeValue(events.DataTypeString, "", time.Time{}))
	// Strings that merely look numeric are not touched.
	assert.Equal(t, "12.0000", eventdata.DecodeValue(events.DataTypeString, "12.0000", time.Time{}))
}

func TestDecodeValueNumberStripsIngestionArtifact(t *testing.T) {
	assert.Equal(t, "12", eventdata.DecodeValue(events.DataTypeNumber, "12.0000", time.Time{}))
	assert.Equal(t, "0", eventdata.DecodeValue(events.DataTypeNumber, "0.0000", time.Time{}))
	// Values without the artifact pass through unchanged.
	assert.Equal(t, "12.5000", eventdata.DecodeValue(events.DataTypeNumber, "12.5000", time.Time{}))
	assert.Equal(t, "3.14", eventdata.DecodeValue(events.DataTypeNumber, "3.14", time.Time{}))
}

func TestDecodeValueDateTruncatesToHour(t *testing.T) {
	at := time.Date(2025, 3, 7, 14, 37, 52, 123456789, time.UTC)
	assert.Equal(t, "2025-03-07 14:00:00", eventdata.DecodeValue(events.DataTypeDate, "", at))

	// Non-UTC instants are normalized before bucketing.
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2025, 3, 7, 16, 37, 0, 0, loc)
	assert.Equal(t, "2025-03-07 14:00:00", eventdata.DecodeValue(events.DataTypeDate, "", local))
}

func TestDecodeValueDateCollapsesSameHour(t *testing.T) {
	a := time.Date(2025, 3, 7, 14, 0, 1, 0, time.UTC)
	b := time.Date(2025, 3, 7, 14, 59, 59, 0, time.UTC)
	assert.Equal(t,
		eventdata.DecodeValue(events.DataTypeDate, "", a),
		eventdata.DecodeValue(events.DataTypeDate, "", b))
}

func TestDecodeValueBooleanPassthrough(t *testing.T) {
	assert.Equal(t, "true", eventdata.DecodeValue(events.DataTypeBoolean, "true", time.Time{}))
	assert.Equal(t, "false", eventdata.DecodeValue(events.DataTypeBoolean, "false", time.Time{}))
}
