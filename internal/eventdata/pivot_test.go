package eventdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proplens/internal/events"
)

var testPivotConfig = PivotConfig{
	Attributes:    []string{"org_name", "click_type", "topic_name", "user_name"},
	UserAttribute: "user_name",
}

func stringRow(eventID, sessionID, key, value string) propertyRow {
	return propertyRow{
		EventID:     eventID,
		SessionID:   sessionID,
		DataKey:     key,
		DataType:    events.DataTypeString,
		StringValue: value,
	}
}

func TestReducePivotGroupsIdenticalCombinations(t *testing.T) {
	// Two occurrences with the same attributes, rows arriving in different
	// key order. They must land in a single group with eventCount 2.
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Acme"),
		stringRow("e1", "s1", "click_type", "cta"),
		stringRow("e2", "s2", "click_type", "cta"),
		stringRow("e2", "s2", "org_name", "Acme"),
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	group := result.Data[0]
	assert.Equal(t, "Acme", group.SelectedPropertyValue)
	assert.Equal(t, map[string]string{"click_type": "cta"}, group.OtherProperties)
	assert.Equal(t, int64(2), group.EventCount)
	assert.Equal(t, int64(2), group.DistinctSessions)
	assert.Equal(t, int64(0), group.DistinctUsers)
}

func TestReducePivotExcludesOccurrencesWithoutAxis(t *testing.T) {
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Acme"),
		// e2 has no org_name at all, e3 has it empty.
		stringRow("e2", "s2", "click_type", "cta"),
		stringRow("e3", "s3", "org_name", ""),
		stringRow("e3", "s3", "click_type", "nav"),
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	assert.Equal(t, "Acme", result.Data[0].SelectedPropertyValue)
	assert.Equal(t, int64(1), result.Data[0].EventCount)
	// Excluded occurrences still contribute their keys to the catalog.
	assert.Equal(t, []string{"click_type", "org_name"}, result.AllProperties)
}

func TestReducePivotDistinctUsersPerGroup(t *testing.T) {
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Acme"),
		stringRow("e1", "s1", "user_name", "alice"),
		stringRow("e2", "s1", "org_name", "Acme"),
		stringRow("e2", "s1", "user_name", "alice"),
		stringRow("e3", "s2", "org_name", "Acme"),
		stringRow("e3", "s2", "user_name", "bob"),
		// Empty user values never count.
		stringRow("e4", "s3", "org_name", "Acme"),
		stringRow("e4", "s3", "user_name", ""),
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)

	// user_name differs across occurrences, so it splits the groups: one
	// per (Acme, user) combination.
	require.Len(t, result.Data, 3)
	alice := result.Data[0]
	assert.Equal(t, map[string]string{"user_name": "alice"}, alice.OtherProperties)
	assert.Equal(t, int64(2), alice.EventCount)
	assert.Equal(t, int64(1), alice.DistinctSessions)
	assert.Equal(t, int64(1), alice.DistinctUsers)
}

func TestReducePivotIgnoresUnallowedAttributes(t *testing.T) {
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Acme"),
		stringRow("e1", "s1", "internal_id", "a-1"),
		stringRow("e2", "s2", "org_name", "Acme"),
		stringRow("e2", "s2", "internal_id", "a-2"),
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)

	// internal_id is not in the allowed attribute set, so the differing
	// values do not split the group.
	require.Len(t, result.Data, 1)
	assert.Equal(t, int64(2), result.Data[0].EventCount)
	assert.Empty(t, result.Data[0].OtherProperties)
	// It still shows up in the observed key catalog.
	assert.Contains(t, result.AllProperties, "internal_id")
}

func TestReducePivotOrdering(t *testing.T) {
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Globex"),
		stringRow("e2", "s2", "org_name", "Globex"),
		stringRow("e3", "s3", "org_name", "Acme"),
		stringRow("e4", "s4", "org_name", "Umbrella"),
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)

	require.Len(t, result.Data, 3)
	// Highest count first, then axis value ascending on ties.
	assert.Equal(t, "Globex", result.Data[0].SelectedPropertyValue)
	assert.Equal(t, "Acme", result.Data[1].SelectedPropertyValue)
	assert.Equal(t, "Umbrella", result.Data[2].SelectedPropertyValue)
}

func TestReducePivotDecodesValuesBeforeGrouping(t *testing.T) {
	at := time.Date(2025, 3, 7, 14, 30, 0, 0, time.UTC)
	rows := []propertyRow{
		{EventID: "e1", SessionID: "s1", DataKey: "amount", DataType: events.DataTypeNumber, StringValue: "12.0000"},
		{EventID: "e2", SessionID: "s2", DataKey: "amount", DataType: events.DataTypeNumber, StringValue: "12.0000"},
		{EventID: "e1", SessionID: "s1", DataKey: "when", DataType: events.DataTypeDate, DateValue: at},
	}

	result, err := reducePivot(rows, "amount", testPivotConfig, PageParams{})
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	assert.Equal(t, "12", result.Data[0].SelectedPropertyValue)
	assert.Equal(t, int64(2), result.Data[0].EventCount)
}

func TestReducePivotPaginates(t *testing.T) {
	var rows []propertyRow
	for i := 0; i < 57; i++ {
		id := string(rune('a'+i/26)) + string(rune('a'+i%26))
		rows = append(rows, stringRow("e-"+id, "s-"+id, "org_name", "org-"+id))
	}

	result, err := reducePivot(rows, "org_name", testPivotConfig, PageParams{Page: 3, Limit: 25})
	require.NoError(t, err)

	assert.Len(t, result.Data, 7)
	assert.Equal(t, Pagination{Page: 3, Limit: 25, Total: 57, Pages: 3}, result.Pagination)
}

func TestReducePivotEmptyInput(t *testing.T) {
	result, err := reducePivot(nil, "org_name", testPivotConfig, PageParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	assert.Empty(t, result.AllProperties)
	assert.Equal(t, 0, result.Pagination.Total)
	assert.Equal(t, "org_name", result.SelectedProperty)
}

func TestReduceValuesCountsAndOrders(t *testing.T) {
	rows := []propertyRow{
		stringRow("e1", "s1", "org_name", "Acme"),
		stringRow("e2", "s2", "org_name", "Acme"),
		stringRow("e3", "s3", "org_name", "Globex"),
		stringRow("e4", "s4", "org_name", "Beta"),
	}

	values := reduceValues(rows, 100)
	require.Len(t, values, 3)
	assert.Equal(t, ValueCount{Value: "Acme", Total: 2}, values[0])
	// Ties break on value ascending.
	assert.Equal(t, "Beta", values[1].Value)
	assert.Equal(t, "Globex", values[2].Value)
}

func TestReduceValuesMergesDecodedForms(t *testing.T) {
	rows := []propertyRow{
		{EventID: "e1", SessionID: "s1", DataKey: "amount", DataType: events.DataTypeNumber, StringValue: "7.0000"},
		{EventID: "e2", SessionID: "s2", DataKey: "amount", DataType: events.DataTypeNumber, StringValue: "7"},
	}

	values := reduceValues(rows, 100)
	require.Len(t, values, 1)
	assert.Equal(t, ValueCount{Value: "7", Total: 2}, values[0])
}

func TestReduceValuesAppliesCap(t *testing.T) {
	var rows []propertyRow
	for i := 0; i < 150; i++ {
		id := string(rune('a'+i/26)) + string(rune('a'+i%26))
		rows = append(rows, stringRow("e-"+id, "s-"+id, "k", "v-"+id))
	}

	values := reduceValues(rows, 100)
	assert.Len(t, values, 100)
}
