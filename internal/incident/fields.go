package incident

import (
	"sort"
	"strconv"
	"strings"
)

// Candidate field lists for the portal's drifting schema, in priority order.
// Keeping them as data lets the fallback chains be tested independently of
// the normalizer.
var (
	idFields = []string{"id", "incidentId", "reportNumber", "caseNumber", "_id"}

	typeFields = []string{"incidentType", "type", "parentIncidentType"}

	parentFields = []string{"parentIncidentType", "parentCategory", "category"}

	parentTypeIDFields = []string{"parentIncidentTypeId", "categoryId"}

	datetimeFields = []string{
		"datetime", "dateTime", "incidentDate", "occurrenceDate",
		"reportedDate", "eventTime", "createdTime", "created_at",
		"updated", "lastUpdated",
		"properties.incidentDate", // some agency feeds nest the date
	}

	addressFields = []string{"address", "blockizedAddress", "location.address"}

	coordinateFields = []string{"location.coordinates", "geometry.coordinates"}
)

// Resolve returns the first candidate value that is defined, non-nil, and not
// an empty string. Dotted candidates descend nested objects. Returns nil when
// nothing matches.
func Resolve(rec RawIncident, candidates ...string) any {
	for _, c := range candidates {
		v, ok := lookupPath(rec, c)
		if ok && present(v) {
			return v
		}
	}
	return nil
}

// ResolveString resolves candidates to a string, stringifying numbers, and
// falls back to def.
func ResolveString(rec RawIncident, def string, candidates ...string) string {
	v := Resolve(rec, candidates...)
	if v == nil {
		return def
	}
	s := Stringify(v)
	if s == "" {
		return def
	}
	return s
}

// ScanDateLike is the last-resort tier of the timestamp lookup: every string
// value whose key looks date-ish ("date"/"time", case-insensitive) is run
// through the timestamp normalizer until one yields an instant. Keys are
// walked in sorted order; the portal emits date-ish keys that are not dates
// ("timezone") and the result must not depend on map iteration order.
func ScanDateLike(rec RawIncident) *string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, ok := rec[k].(string)
		if !ok || s == "" {
			continue
		}
		key := strings.ToLower(k)
		if !strings.Contains(key, "date") && !strings.Contains(key, "time") {
			continue
		}
		if dt := NormalizeTimestamp(s); dt != nil {
			return dt
		}
	}
	return nil
}

// Stringify renders a resolved scalar as a string. JSON numbers arrive as
// float64; integral values are printed without a decimal point.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func lookupPath(rec map[string]any, path string) (any, bool) {
	if !strings.Contains(path, ".") {
		v, ok := rec[path]
		return v, ok
	}

	parts := strings.Split(path, ".")
	var cur any = map[string]any(rec)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// present reports whether a value counts as usable: defined, non-nil, and not
// an empty string.
func present(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}
