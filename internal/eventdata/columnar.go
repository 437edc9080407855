package eventdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"proplens/internal/events"
)

// columnarEngine executes the engine contract against the append-only
// columnar store. Property rows live in a flat event_data table that
// repeats occurrence attributes, so most queries scan a single table; the
// website_event companion table is joined only when the free-text tag
// filter needs it.
type columnarEngine struct {
	conn  driver.Conn
	pivot PivotConfig
}

// NewColumnarEngine creates the columnar-store implementation of the engine.
func NewColumnarEngine(conn driver.Conn, pivot PivotConfig) Engine {
	return &columnarEngine{conn: conn, pivot: pivot}
}

func (e *columnarEngine) ListProperties(ctx context.Context, req CatalogRequest) ([]PropertySummary, error) {
	spec := req.Filter
	opts := CompileOptions{
		ColumnAliases: map[string]string{"propertyName": "event_data.data_key"},
	}
	if req.PropertyName != "" {
		spec.Fields = append(spec.Fields, FieldFilter{
			Column: "propertyName", Op: FilterOpEquals, Value: req.PropertyName,
		})
	}

	compiled, err := Compile(spec, DialectClickHouse, opts)
	if err != nil {
		return nil, err
	}

	var query string
	var args []any

	if !compiled.NeedsOccurrenceJoin {
		// Without a tag predicate the flat table answers the catalog alone.
		query = fmt.Sprintf(`
    select
        event_data.event_name as event_name,
        event_data.data_key as property_name,
        count(*) as total
    from event_data%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?%s
    group by event_name, property_name
    order by total desc
    limit %d
    `, compiled.Cohort, compiled.Filter, maxCatalogRows)

		args = append(args, compiled.CohortArgs...)
		args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
		args = append(args, compiled.FilterArgs...)
	} else {
		// The tag lives on website_event; the join must not narrow the
		// candidate set beyond what the row store sees.
		query = fmt.Sprintf(`
    select
        website_event.event_name as event_name,
        event_data.data_key as property_name,
        count(*) as total
    from event_data
    inner join website_event on website_event.event_id = event_data.event_id%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?
        and website_event.website_id = ?
        and website_event.created_at between ? and ?%s%s
    group by event_name, property_name
    order by total desc
    limit %d
    `, compiled.Cohort, compiled.Filter, compiled.Value, maxCatalogRows)

		args = append(args, compiled.CohortArgs...)
		args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
		args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
		args = append(args, compiled.FilterArgs...)
		args = append(args, compiled.ValueArgs...)
	}

	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyBackendErr("listProperties", err)
	}
	defer rows.Close()

	var results []PropertySummary
	for rows.Next() {
		var (
			eventName    string
			propertyName string
			total        uint64
		)
		if err := rows.Scan(&eventName, &propertyName, &total); err != nil {
			return nil, classifyBackendErr("listProperties", err)
		}
		results = append(results, PropertySummary{
			EventName:    eventName,
			PropertyName: propertyName,
			Total:        int64(total),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyBackendErr("listProperties", err)
	}
	return results, nil
}

func (e *columnarEngine) ListValues(ctx context.Context, req ValuesRequest) ([]ValueCount, error) {
	if err := validateValuesRequest(req); err != nil {
		return nil, err
	}

	compiled, err := Compile(req.Filter, DialectClickHouse, CompileOptions{AllowEventName: true})
	if err != nil {
		return nil, err
	}

	eventPredicate := ""
	if req.EventName != "" {
		eventPredicate = "\n        and event_data.event_name = ?"
	}

	query := fmt.Sprintf(`
    select
        event_data.data_type as data_type,
        event_data.string_value as string_value,
        event_data.date_value as date_value
    from event_data%s%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?%s
        and event_data.data_key = ?%s%s
    `, tagJoin(compiled), compiled.Cohort, eventPredicate, compiled.Filter, compiled.Value)

	args := make([]any, 0, 5+len(compiled.CohortArgs)+len(compiled.FilterArgs)+len(compiled.ValueArgs))
	args = append(args, compiled.CohortArgs...)
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
	if req.EventName != "" {
		args = append(args, req.EventName)
	}
	args = append(args, req.PropertyName)
	args = append(args, compiled.FilterArgs...)
	args = append(args, compiled.ValueArgs...)

	rows, err := e.fetchValueRows(ctx, "listValues", query, args)
	if err != nil {
		return nil, err
	}
	return reduceValues(rows, maxValueRows), nil
}

func (e *columnarEngine) PivotDetails(ctx context.Context, req PivotRequest) (*PivotResult, error) {
	if err := validatePivotRequest(req); err != nil {
		return nil, err
	}

	compiled, err := Compile(req.Filter, DialectClickHouse, CompileOptions{AllowEventName: true})
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
    select
        event_data.event_id as event_id,
        event_data.session_id as session_id,
        event_data.data_key as data_key,
        event_data.data_type as data_type,
        event_data.string_value as string_value,
        event_data.date_value as date_value
    from event_data%s%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?
        and event_data.event_name = ?%s%s
    `, tagJoin(compiled), compiled.Cohort, compiled.Filter, compiled.Value)

	args := make([]any, 0, 4+len(compiled.CohortArgs)+len(compiled.FilterArgs)+len(compiled.ValueArgs))
	args = append(args, compiled.CohortArgs...)
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To, req.EventName)
	args = append(args, compiled.FilterArgs...)
	args = append(args, compiled.ValueArgs...)

	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyBackendErr("pivotDetails", err)
	}
	defer rows.Close()

	var propertyRows []propertyRow
	for rows.Next() {
		var (
			eventID     string
			sessionID   string
			dataKey     string
			dataType    uint8
			stringValue string
			dateValue   time.Time
		)
		if err := rows.Scan(&eventID, &sessionID, &dataKey, &dataType, &stringValue, &dateValue); err != nil {
			return nil, classifyBackendErr("pivotDetails", err)
		}
		propertyRows = append(propertyRows, propertyRow{
			EventID:     eventID,
			SessionID:   sessionID,
			DataKey:     dataKey,
			DataType:    events.DataType(dataType),
			StringValue: stringValue,
			DateValue:   dateValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyBackendErr("pivotDetails", err)
	}

	return reducePivot(propertyRows, req.PropertyName, e.pivot, req.Page)
}

func (e *columnarEngine) fetchValueRows(ctx context.Context, operation, query string, args []any) ([]propertyRow, error) {
	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyBackendErr(operation, err)
	}
	defer rows.Close()

	var propertyRows []propertyRow
	for rows.Next() {
		var (
			dataType    uint8
			stringValue string
			dateValue   time.Time
		)
		if err := rows.Scan(&dataType, &stringValue, &dateValue); err != nil {
			return nil, classifyBackendErr(operation, err)
		}
		propertyRows = append(propertyRows, propertyRow{
			DataType:    events.DataType(dataType),
			StringValue: stringValue,
			DateValue:   dateValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyBackendErr(operation, err)
	}
	return propertyRows, nil
}

// tagJoin emits the website_event join when the compiled filter predicates
// over the occurrence tag.
func tagJoin(compiled CompiledFilter) string {
	if !compiled.NeedsOccurrenceJoin {
		return ""
	}
	return "\n    inner join website_event on website_event.event_id = event_data.event_id" +
		"\n        and website_event.website_id = event_data.website_id"
}
