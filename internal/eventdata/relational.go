package eventdata

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"proplens/internal/events"
)

// relationalEngine executes the engine contract against the normalized
// row store (events + event_data tables) through gorm.
type relationalEngine struct {
	db    *gorm.DB
	pivot PivotConfig
}

// NewRelationalEngine creates the row-store implementation of the engine.
func NewRelationalEngine(db *gorm.DB, pivot PivotConfig) Engine {
	return &relationalEngine{db: db, pivot: pivot}
}

func (e *relationalEngine) ListProperties(ctx context.Context, req CatalogRequest) ([]PropertySummary, error) {
	spec := req.Filter
	opts := CompileOptions{
		ColumnAliases: map[string]string{"propertyName": "event_data.data_key"},
	}
	if req.PropertyName != "" {
		spec.Fields = append(spec.Fields, FieldFilter{
			Column: "propertyName", Op: FilterOpEquals, Value: req.PropertyName,
		})
	}

	compiled, err := Compile(spec, DialectSQLite, opts)
	if err != nil {
		return nil, err
	}

	// The tag filter predicates over the joined events row, so it must not
	// narrow event_data asymmetrically: the occurrence join is
	// unconditional and the tag test is a plain conjunction.
	query := fmt.Sprintf(`
    select
        events.event_name as event_name,
        event_data.data_key as property_name,
        count(*) as total
    from event_data
    join events on events.event_id = event_data.event_id
        and events.website_id = ?
        and events.created_at between ? and ?%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?%s%s
    group by events.event_name, event_data.data_key
    order by total desc
    limit %d
    `, compiled.Cohort, compiled.Filter, compiled.Value, maxCatalogRows)

	args := make([]any, 0, 6+len(compiled.CohortArgs)+len(compiled.FilterArgs)+len(compiled.ValueArgs))
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
	args = append(args, compiled.CohortArgs...)
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
	args = append(args, compiled.FilterArgs...)
	args = append(args, compiled.ValueArgs...)

	var rows []struct {
		EventName    string
		PropertyName string
		Total        int64
	}
	if err := e.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, classifyBackendErr("listProperties", err)
	}

	results := make([]PropertySummary, len(rows))
	for i, r := range rows {
		results[i] = PropertySummary{EventName: r.EventName, PropertyName: r.PropertyName, Total: r.Total}
	}
	return results, nil
}

func (e *relationalEngine) ListValues(ctx context.Context, req ValuesRequest) ([]ValueCount, error) {
	if err := validateValuesRequest(req); err != nil {
		return nil, err
	}

	compiled, err := Compile(req.Filter, DialectSQLite, CompileOptions{AllowEventName: true})
	if err != nil {
		return nil, err
	}

	eventPredicate := ""
	if req.EventName != "" {
		eventPredicate = "\n        and events.event_name = ?"
	}

	query := fmt.Sprintf(`
    select
        event_data.data_type as data_type,
        event_data.string_value as string_value,
        event_data.date_value as date_value
    from event_data
    join events on events.event_id = event_data.event_id
        and events.website_id = ?
        and events.created_at between ? and ?%s%s
    where event_data.website_id = ?
        and event_data.created_at between ? and ?
        and event_data.data_key = ?%s%s
    `, eventPredicate, compiled.Cohort, compiled.Filter, compiled.Value)

	args := make([]any, 0, 8+len(compiled.CohortArgs)+len(compiled.FilterArgs)+len(compiled.ValueArgs))
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To)
	if req.EventName != "" {
		args = append(args, req.EventName)
	}
	args = append(args, compiled.CohortArgs...)
	args = append(args, req.WebsiteID, req.Range.From, req.Range.To, req.PropertyName)
	args = append(args, compiled.FilterArgs...)
	args = append(args, compiled.ValueArgs...)

	rows, err := e.fetchRows(ctx, "listValues", query, args)
	if err != nil {
		return nil, err
	}

	return reduceValues(rows, maxValueRows), nil
}

func (e *relationalEngine) PivotDetails(ctx context.Context, req PivotRequest) (*PivotResult, error) {
	if err := validatePivotRequest(req); err != nil {
		return nil, err
	}

	compiled, err := Compile(req.Filter, DialectSQLite, CompileOptions{AllowEventName: true})
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
    select
        events.event_id as event_id,
        events.session_id as session_id,
        event_data.data_key as data_key,
        event_data.data_type as data_type,
        event_data.string_value as string_value,
        event_data.date_value as date_value
    from events
    join event_data on event_data.event_id = events.event_id
        and event_data.website_id = ?%s
    where events.website_id = ?
        and events.event_name = ?
        and events.created_at between ? and ?%s%s
    `, compiled.Cohort, compiled.Filter, compiled.Value)

	args := make([]any, 0, 5+len(compiled.CohortArgs)+len(compiled.FilterArgs)+len(compiled.ValueArgs))
	args = append(args, req.WebsiteID)
	args = append(args, compiled.CohortArgs...)
	args = append(args, req.WebsiteID, req.EventName, req.Range.From, req.Range.To)
	args = append(args, compiled.FilterArgs...)
	args = append(args, compiled.ValueArgs...)

	rows, err := e.fetchRows(ctx, "pivotDetails", query, args)
	if err != nil {
		return nil, err
	}

	return reducePivot(rows, req.PropertyName, e.pivot, req.Page)
}

// fetchRows runs a raw-property-row query and maps results to the shared
// reduction input shape.
func (e *relationalEngine) fetchRows(ctx context.Context, operation, query string, args []any) ([]propertyRow, error) {
	var scanned []struct {
		EventID     string
		SessionID   string
		DataKey     string
		DataType    events.DataType
		StringValue string
		DateValue   *time.Time
	}
	if err := e.db.WithContext(ctx).Raw(query, args...).Scan(&scanned).Error; err != nil {
		return nil, classifyBackendErr(operation, err)
	}

	rows := make([]propertyRow, len(scanned))
	for i, s := range scanned {
		rows[i] = propertyRow{
			EventID:     s.EventID,
			SessionID:   s.SessionID,
			DataKey:     s.DataKey,
			DataType:    s.DataType,
			StringValue: s.StringValue,
		}
		if s.DateValue != nil {
			rows[i].DateValue = *s.DateValue
		}
	}
	return rows, nil
}
