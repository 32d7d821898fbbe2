package incident

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoMillis matches JavaScript's Date.toISOString output, which the portal's
// original consumers were built around.
const isoMillis = "2006-01-02T15:04:05.000Z"

// epochMillisCutoff separates Unix seconds from milliseconds: anything at or
// above 10^12 is read as milliseconds (10^12 seconds is the year 33658).
const epochMillisCutoff = 1e12

// wrappedEpochRe matches the legacy .NET-style wrapped epoch the portal still
// emits on some records: "/Date(1695782400000)/".
var wrappedEpochRe = regexp.MustCompile(`^/Date\((\d+)\)/$`)

// zonelessLayouts are portal date strings with no zone designator; both are
// interpreted as UTC. Fractional seconds are accepted by time.Parse without
// being spelled in the layout.
var zonelessLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// genericLayouts is the last parsing tier, tried in order.
var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// NormalizeTimestamp reduces an arbitrary extracted value to an ISO-8601 UTC
// instant string, or nil if no tier yields a valid instant. It never errors:
// a bad date on one record must not abort normalization of the batch.
func NormalizeTimestamp(v any) *string {
	t, ok := parseInstant(v)
	if !ok {
		return nil
	}
	s := t.UTC().Format(isoMillis)
	return &s
}

func parseInstant(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case float64:
		return epochToTime(t), true
	case int:
		return epochToTime(float64(t)), true
	case int64:
		return epochToTime(float64(t)), true
	case string:
		return parseInstantString(t)
	default:
		return time.Time{}, false
	}
}

func parseInstantString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := wrappedEpochRe.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}

	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Bare numeric strings still count as epochs.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToTime(n), true
	}

	return time.Time{}, false
}

func epochToTime(n float64) time.Time {
	if n >= epochMillisCutoff {
		return time.UnixMilli(int64(n))
	}
	return time.Unix(int64(n), 0)
}

// ObjectIDTime decodes the creation instant embedded in a Mongo ObjectId (the
// first four bytes are Unix epoch seconds). The portal's record ids are
// ObjectIds, which makes this a usable datetime fallback when every date
// field is missing. Returns nil for anything that does not look like one.
func ObjectIDTime(id string) *time.Time {
	if len(id) != 24 {
		return nil
	}
	secs, err := strconv.ParseInt(id[:8], 16, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}
