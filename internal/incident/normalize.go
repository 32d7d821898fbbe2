package incident

import (
	"context"
	"math"
)

// coordPrecision stabilizes cache keys and shrinks payloads; 5 decimal places
// is roughly one meter.
const coordPrecision = 1e5

// AddressResolver turns a coordinate into a display address, or nil when none
// is available. The second return reports whether an external lookup was
// performed, so callers can enforce a per-batch ceiling.
type AddressResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (addr *string, external bool)
}

// Normalizer converts raw portal records into canonical incidents.
type Normalizer struct {
	resolver   AddressResolver // nil disables reverse geocoding entirely
	maxLookups int             // external lookups allowed per batch
}

// NewNormalizer creates a Normalizer. Pass a nil resolver to disable address
// enrichment.
func NewNormalizer(resolver AddressResolver, maxLookups int) *Normalizer {
	return &Normalizer{
		resolver:   resolver,
		maxLookups: maxLookups,
	}
}

// Normalize converts a raw batch into canonical incidents. A malformed record
// never fails the batch; every field degrades to its documented default.
func (n *Normalizer) Normalize(ctx context.Context, raw []RawIncident, opts Options) []Incident {
	if opts.Limit > 0 && len(raw) > opts.Limit {
		raw = raw[:opts.Limit]
	}

	budget := n.maxLookups
	out := make([]Incident, 0, len(raw))
	for _, rec := range raw {
		inc := n.normalizeOne(ctx, rec, opts, &budget)
		out = append(out, inc)
	}
	return out
}

func (n *Normalizer) normalizeOne(ctx context.Context, rec RawIncident, opts Options, budget *int) Incident {
	var id *string
	if v := Resolve(rec, idFields...); v != nil {
		s := Stringify(v)
		if s != "" {
			id = &s
		}
	}

	typ := ResolveString(rec, "Unknown", typeFields...)

	parent := ResolveString(rec, "", parentFields...)
	if parent == "" {
		parent = typ
	}
	if parent == "" {
		parent = "Unknown"
	}

	var parentTypeID *any
	if !opts.Lite {
		v := Resolve(rec, parentTypeIDFields...)
		parentTypeID = &v
	}

	lat, lon := resolveCoordinates(rec)

	dt := NormalizeTimestamp(Resolve(rec, datetimeFields...))
	if dt == nil {
		dt = ScanDateLike(rec)
	}
	if dt == nil && id != nil {
		if t := ObjectIDTime(*id); t != nil {
			s := t.Format(isoMillis)
			dt = &s
		}
	}

	address := n.resolveAddress(ctx, rec, lat, lon, opts, budget)

	return Incident{
		ID:           id,
		Type:         typ,
		Parent:       parent,
		ParentTypeID: parentTypeID,
		Lat:          lat,
		Lon:          lon,
		Zone:         ZoneFor(lat, lon),
		Datetime:     dt,
		Address:      address,
	}
}

// resolveAddress prefers direct upstream fields and only then consults the
// reverse geocoder, respecting the per-batch lookup budget.
func (n *Normalizer) resolveAddress(ctx context.Context, rec RawIncident, lat, lon *float64, opts Options, budget *int) *string {
	if v := Resolve(rec, addressFields...); v != nil {
		if s := Stringify(v); s != "" {
			return &s
		}
	}
	if !opts.EnrichAddresses || n.resolver == nil {
		return nil
	}
	if lat == nil || lon == nil || *budget <= 0 {
		return nil
	}

	addr, external := n.resolver.Resolve(ctx, *lat, *lon)
	if external {
		*budget--
	}
	return addr
}

// resolveCoordinates reads the two-element [lon, lat] array. Both coordinates
// are nil unless the pair decodes completely.
func resolveCoordinates(rec RawIncident) (lat, lon *float64) {
	v := Resolve(rec, coordinateFields...)
	arr, ok := v.([]any)
	if !ok || len(arr) < 2 {
		return nil, nil
	}

	lonV, okLon := toFloat(arr[0])
	latV, okLat := toFloat(arr[1])
	if !okLon || !okLat {
		return nil, nil
	}

	latV = roundCoord(latV)
	lonV = roundCoord(lonV)
	return &latV, &lonV
}

func roundCoord(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
