package eventdata

import (
	"strings"
	"time"

	"proplens/internal/events"
)

// numericArtifact is a fixed formatting quirk in upstream ingestion: numeric
// values arrive rendered with a ".0000" fractional tail. Grouping is done on
// decoded strings, so "12.0000" and "12" must collapse to one value; the
// stripping mirrors the stored artifact byte for byte.
const numericArtifact = ".0000"

// displayTimeLayout renders temporal property values for grouping and
// display: hour bucket, minutes and seconds zeroed.
const displayTimeLayout = "2006-01-02 15:04:05"

// DecodeValue decodes one stored property value into its canonical display
// string. The function is pure and shared by every backend implementation;
// cross-backend result equality hinges on it.
func DecodeValue(dataType events.DataType, stringValue string, dateValue time.Time) string {
	switch dataType {
	case events.DataTypeNumber:
		return strings.ReplaceAll(stringValue, numericArtifact, "")
	case events.DataTypeDate:
		return dateValue.UTC().Truncate(time.Hour).Format(displayTimeLayout)
	default:
		return stringValue
	}
}
