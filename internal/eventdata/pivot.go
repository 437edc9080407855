package eventdata

import (
	"encoding/json"
	"sort"
	"time"

	"proplens/internal/events"
)

// propertyRow is one raw property record as fetched from either backend:
// the occurrence identity plus one typed key/value pair. Both backends
// produce this shape so the reduction below is a single code path; the
// cross-backend equivalence guarantee lives here, not in two SQL dialects.
type propertyRow struct {
	EventID     string
	SessionID   string
	DataKey     string
	DataType    events.DataType
	StringValue string
	DateValue   time.Time
}

// pivotedOccurrence is the transient per-occurrence attribute map built by
// folding an occurrence's property rows through the value codec.
type pivotedOccurrence struct {
	sessionID string
	props     map[string]string
}

// combinationKey groups occurrences by axis value plus the canonical
// serialization of their remaining allowed attributes.
type combinationKey struct {
	axisValue string
	others    string // key-sorted JSON
}

type combinationAgg struct {
	otherProps map[string]string
	eventCount int64
	sessions   map[string]struct{}
	userValues map[string]struct{}
}

// reduceValues aggregates decoded value counts from raw property rows,
// ordered by count descending (value ascending on ties), capped.
func reduceValues(rows []propertyRow, cap int) []ValueCount {
	counts := make(map[string]int64)
	for _, row := range rows {
		counts[DecodeValue(row.DataType, row.StringValue, row.DateValue)]++
	}

	values := make([]ValueCount, 0, len(counts))
	for value, total := range counts {
		values = append(values, ValueCount{Value: value, Total: total})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Total != values[j].Total {
			return values[i].Total > values[j].Total
		}
		return values[i].Value < values[j].Value
	})

	if len(values) > cap {
		values = values[:cap]
	}
	return values
}

// reducePivot runs the backend-agnostic pivot: fold rows per occurrence,
// split off the axis value, group by (axis value, canonical other
// attributes), aggregate, order, paginate.
func reducePivot(rows []propertyRow, propertyName string, cfg PivotConfig, page PageParams) (*PivotResult, error) {
	allProperties := collectPropertyNames(rows)
	occurrences := foldOccurrences(rows)

	groups := make(map[combinationKey]*combinationAgg)
	for _, occ := range occurrences {
		// The axis must be present and non-empty; occurrences without it
		// do not participate in any group.
		axisValue, ok := occ.props[propertyName]
		if !ok || axisValue == "" {
			continue
		}

		otherProps := selectOtherProperties(occ.props, propertyName, cfg.Attributes)
		serialized, err := canonicalJSON(otherProps)
		if err != nil {
			return nil, err
		}

		key := combinationKey{axisValue: axisValue, others: serialized}
		agg, ok := groups[key]
		if !ok {
			agg = &combinationAgg{
				otherProps: otherProps,
				sessions:   make(map[string]struct{}),
				userValues: make(map[string]struct{}),
			}
			groups[key] = agg
		}

		agg.eventCount++
		agg.sessions[occ.sessionID] = struct{}{}
		// distinctUsers counts distinct non-empty values of the configured
		// user attribute, per combination group.
		if user, ok := occ.props[cfg.UserAttribute]; ok && user != "" {
			agg.userValues[user] = struct{}{}
		}
	}

	ordered := orderGroups(groups)

	paged := PaginateSlice(ordered, page)
	return &PivotResult{
		Data:             paged.Data,
		Pagination:       paged.Pagination,
		SelectedProperty: propertyName,
		AllProperties:    allProperties,
	}, nil
}

// foldOccurrences builds one attribute map per occurrence. A later row for
// the same (event, key) cannot occur, storage enforces uniqueness, so the
// fold is insertion-order independent.
func foldOccurrences(rows []propertyRow) map[string]*pivotedOccurrence {
	occurrences := make(map[string]*pivotedOccurrence)
	for _, row := range rows {
		occ, ok := occurrences[row.EventID]
		if !ok {
			occ = &pivotedOccurrence{
				sessionID: row.SessionID,
				props:     make(map[string]string),
			}
			occurrences[row.EventID] = occ
		}
		occ.props[row.DataKey] = DecodeValue(row.DataType, row.StringValue, row.DateValue)
	}
	return occurrences
}

// collectPropertyNames returns the distinct data keys observed, ascending.
func collectPropertyNames(rows []propertyRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[row.DataKey] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// selectOtherProperties restricts an occurrence's attribute map to the
// configured secondary names minus the axis. Only attributes actually
// present on the occurrence appear.
func selectOtherProperties(props map[string]string, axis string, allowed []string) map[string]string {
	others := make(map[string]string)
	for _, name := range allowed {
		if name == axis {
			continue
		}
		if value, ok := props[name]; ok {
			others[name] = value
		}
	}
	return others
}

// canonicalJSON serializes an attribute map with sorted keys so occurrences
// with the same attribute set collapse into one group regardless of the
// order keys were written in. encoding/json sorts map keys, which makes the
// serialization order-independent; this invariant is what keeps the two
// backends in agreement.
func canonicalJSON(m map[string]string) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// orderGroups materializes and orders groups: event count descending,
// axis value ascending on ties, canonical serialization as the final
// tie-break so output order is fully deterministic.
func orderGroups(groups map[combinationKey]*combinationAgg) []CombinationGroup {
	type keyed struct {
		key   combinationKey
		group CombinationGroup
	}

	ordered := make([]keyed, 0, len(groups))
	for key, agg := range groups {
		ordered = append(ordered, keyed{
			key: key,
			group: CombinationGroup{
				SelectedPropertyValue: key.axisValue,
				OtherProperties:       agg.otherProps,
				EventCount:            agg.eventCount,
				DistinctSessions:      int64(len(agg.sessions)),
				DistinctUsers:         int64(len(agg.userValues)),
			},
		})
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.group.EventCount != b.group.EventCount {
			return a.group.EventCount > b.group.EventCount
		}
		if a.key.axisValue != b.key.axisValue {
			return a.key.axisValue < b.key.axisValue
		}
		return a.key.others < b.key.others
	})

	result := make([]CombinationGroup, len(ordered))
	for i, k := range ordered {
		result[i] = k.group
	}
	return result
}
