package incident

import (
	"time"
)

// RawIncident is an upstream record as decoded from the portal response.
// The portal does not guarantee a schema: fields come and go, get renamed,
// or move under "properties"/"details" sub-objects, so records stay loosely
// typed until the normalizer has resolved them.
type RawIncident map[string]any

// Incident is the normalized, stable-shaped record produced by the pipeline.
// It is immutable once built.
type Incident struct {
	ID     *string `json:"id"`
	Type   string  `json:"type"`
	Parent string  `json:"parent"`
	// ParentTypeID is the upstream category code (string or number). In full
	// output it is always present, null when unresolved; lite mode leaves the
	// pointer nil so the key is omitted entirely.
	ParentTypeID *any     `json:"parentTypeId,omitempty"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	Zone         string   `json:"zone"`
	Datetime     *string  `json:"datetime"`
	Address      *string  `json:"address"`
}

// Report is the aggregate view served for one request window.
type Report struct {
	Updated    time.Time      `json:"updated"`
	Hours      int            `json:"hours"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	Zones      map[string]int `json:"zones"`
	Incidents  []Incident     `json:"incidents"`
}

// Options control how a raw batch is normalized.
type Options struct {
	// Lite drops parentTypeId from the output to shrink payloads.
	Lite bool
	// Limit truncates the raw batch before per-record processing. <= 0 means no limit.
	Limit int
	// EnrichAddresses enables reverse-geocode lookups for records without an
	// upstream address.
	EnrichAddresses bool
}

// BuildReport aggregates normalized incidents into a Report.
func BuildReport(incidents []Incident, hours int, now time.Time) Report {
	return Report{
		Updated:    now.UTC(),
		Hours:      hours,
		Total:      len(incidents),
		Categories: GroupCount(incidents, func(i Incident) string { return i.Parent }),
		Zones:      GroupCount(incidents, func(i Incident) string { return i.Zone }),
		Incidents:  incidents,
	}
}

// GroupCount counts incidents by keyFn. Empty keys are bucketed under "Other".
func GroupCount(incidents []Incident, keyFn func(Incident) string) map[string]int {
	m := make(map[string]int)
	for _, inc := range incidents {
		k := keyFn(inc)
		if k == "" {
			k = "Other"
		}
		m[k]++
	}
	return m
}
