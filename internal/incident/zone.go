package incident

// Zone names assigned by the classifier.
const (
	ZoneUnknown = "Unknown"
	ZoneNorth   = "North Redding"
	ZoneSouth   = "South Redding"
	ZoneEast    = "East Redding"
	ZoneWest    = "West Redding"
	ZoneCentral = "Central Redding"
)

// ZoneFor buckets a coordinate into one of five Redding zones using static
// latitude/longitude thresholds. This is a deliberate approximation, not a
// polygon lookup: the bands overlap at the edges and the first matching check
// wins, so the order of the guards is part of the contract.
func ZoneFor(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ZoneUnknown
	}
	switch {
	case *lat >= 40.62:
		return ZoneNorth
	case *lat <= 40.55:
		return ZoneSouth
	case *lon <= -122.42:
		return ZoneWest
	case *lon >= -122.36:
		return ZoneEast
	default:
		return ZoneCentral
	}
}
