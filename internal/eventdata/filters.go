package eventdata

import (
	"fmt"
	"strings"

	"proplens/internal/timeframe"
)

// Dialect identifies the target query syntax for compiled filters.
type Dialect string

const (
	DialectSQLite     Dialect = "sqlite"
	DialectClickHouse Dialect = "clickhouse"
)

// FilterOp is the comparison a standard filter applies.
type FilterOp string

const (
	FilterOpEquals   FilterOp = "eq"
	FilterOpContains FilterOp = "contains"
)

// FieldFilter is one standard attribute predicate over occurrence columns.
// Column is a logical name from the allow-list, never raw SQL.
type FieldFilter struct {
	Column string
	Op     FilterOp
	Value  string
}

// FilterSpec is the immutable filter input shared by every engine
// operation: inclusive date range, standard attribute filters, optional
// cohort membership, and an optional free-text filter matched against the
// occurrence tag (not the pivoted properties).
type FilterSpec struct {
	Range       timeframe.Range
	Fields      []FieldFilter
	CohortID    string
	ValueFilter string
}

// CompileOptions tunes compilation per call site.
type CompileOptions struct {
	// AllowEventName permits the "event" filter column. Only event-scoped
	// operations accept it; elsewhere it would be ambiguous.
	AllowEventName bool
	// ColumnAliases remaps logical filter names to extra physical columns
	// for one call site (the catalog maps propertyName onto data_key).
	ColumnAliases map[string]string
}

// CompiledFilter is the output of the compiler: three independent SQL
// fragments with their bound arguments. They are independent because call
// sites interleave them at different join points: the cohort fragment is a
// join, the others are conjunctions.
type CompiledFilter struct {
	Filter     string
	FilterArgs []any
	Cohort     string
	CohortArgs []any
	Value      string
	ValueArgs  []any
	// NeedsOccurrenceJoin is set when a compiled fragment references the
	// columnar occurrence table (website_event), so call sites on the flat
	// table know to add the join.
	NeedsOccurrenceJoin bool
}

// Logical filter columns mapped to physical columns per dialect. The row
// store predicates over the joined events table; the columnar store carries
// the occurrence attributes on every property row.
var sqliteColumns = map[string]string{
	"url":      "events.url_path",
	"query":    "events.url_query",
	"referrer": "events.referrer_domain",
	"title":    "events.page_title",
	"browser":  "events.browser",
	"os":       "events.os",
	"device":   "events.device",
	"country":  "events.country",
	"region":   "events.region",
	"city":     "events.city",
	"host":     "events.hostname",
	"tag":      "events.tag",
	"event":    "events.event_name",
}

var clickhouseColumns = map[string]string{
	"url":      "event_data.url_path",
	"query":    "event_data.url_query",
	"referrer": "event_data.referrer_domain",
	"title":    "event_data.page_title",
	"browser":  "event_data.browser",
	"os":       "event_data.os",
	"device":   "event_data.device",
	"country":  "event_data.country",
	"region":   "event_data.region",
	"city":     "event_data.city",
	"host":     "event_data.hostname",
	"tag":      "website_event.tag",
	"event":    "event_data.event_name",
}

// FilterColumns returns the logical column names the API accepts as
// standard filters, excluding the event-scoped "event" column.
func FilterColumns() []string {
	return []string{
		"url", "query", "referrer", "title", "browser", "os",
		"device", "country", "region", "city", "host", "tag",
	}
}

// Compile translates a FilterSpec into dialect-specific predicate fragments
// with bound parameters. Every user-supplied literal becomes an argument;
// no value is ever interpolated into the SQL text.
func Compile(spec FilterSpec, dialect Dialect, opts CompileOptions) (CompiledFilter, error) {
	columns, err := dialectColumns(dialect)
	if err != nil {
		return CompiledFilter{}, err
	}

	var compiled CompiledFilter
	var filter strings.Builder

	for _, f := range spec.Fields {
		column, err := resolveColumn(f.Column, columns, opts)
		if err != nil {
			return CompiledFilter{}, err
		}

		switch f.Op {
		case FilterOpContains:
			filter.WriteString(containsPredicate(dialect, column))
		default:
			fmt.Fprintf(&filter, "\nand %s = ?", column)
		}
		compiled.FilterArgs = append(compiled.FilterArgs, f.Value)

		if strings.HasPrefix(column, "website_event.") {
			compiled.NeedsOccurrenceJoin = true
		}
	}
	compiled.Filter = filter.String()

	if spec.CohortID != "" {
		compiled.Cohort = cohortJoin(dialect)
		compiled.CohortArgs = append(compiled.CohortArgs, spec.CohortID)
	}

	if spec.ValueFilter != "" {
		compiled.Value = valuePredicate(dialect)
		compiled.ValueArgs = append(compiled.ValueArgs, spec.ValueFilter)
		if dialect == DialectClickHouse {
			compiled.NeedsOccurrenceJoin = true
		}
	}

	return compiled, nil
}

func dialectColumns(dialect Dialect) (map[string]string, error) {
	switch dialect {
	case DialectSQLite:
		return sqliteColumns, nil
	case DialectClickHouse:
		return clickhouseColumns, nil
	default:
		return nil, fmt.Errorf("unknown filter dialect %q", dialect)
	}
}

func resolveColumn(logical string, columns map[string]string, opts CompileOptions) (string, error) {
	if physical, ok := opts.ColumnAliases[logical]; ok {
		return physical, nil
	}
	physical, ok := columns[logical]
	if !ok || (logical == "event" && !opts.AllowEventName) {
		return "", &InvalidFilterError{Column: logical}
	}
	return physical, nil
}

// containsPredicate emits a case-insensitive substring test for the dialect.
func containsPredicate(dialect Dialect, column string) string {
	if dialect == DialectClickHouse {
		return fmt.Sprintf("\nand positionCaseInsensitive(%s, ?) > 0", column)
	}
	return fmt.Sprintf("\nand instr(lower(%s), lower(?)) > 0", column)
}

// cohortJoin emits the membership join. Cohorts are precomputed session
// sets, so membership is a structurally different subquery than the
// attribute predicates and joins at the occurrence's session.
func cohortJoin(dialect Dialect) string {
	if dialect == DialectClickHouse {
		return "\ninner join cohort_members on cohort_members.session_id = event_data.session_id and cohort_members.cohort_id = ?"
	}
	return "\njoin cohort_members on cohort_members.session_id = events.session_id and cohort_members.cohort_id = ?"
}

// valuePredicate emits the free-text tag filter. The ClickHouse variant
// guards against empty tags so the substring test cannot match occurrences
// that were never tagged.
func valuePredicate(dialect Dialect) string {
	if dialect == DialectClickHouse {
		return "\nand website_event.tag != '' and positionCaseInsensitive(website_event.tag, ?) > 0"
	}
	return "\nand instr(lower(events.tag), lower(?)) > 0"
}
