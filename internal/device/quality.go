package device

// Signal quality labels.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
	QualityVeryPoor  = "Very Poor"
)

// QualityFor maps an RSSI reading in dBm to a human-readable label.
func QualityFor(rssi int) string {
	switch {
	case rssi >= -50:
		return QualityExcellent
	case rssi >= -60:
		return QualityGood
	case rssi >= -70:
		return QualityFair
	case rssi >= -80:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}

// DistanceFor returns a coarse distance estimate in metres for an RSSI reading.
// The buckets are display hints, not a propagation model.
func DistanceFor(rssi int) float64 {
	switch {
	case rssi >= -30:
		return 0.5
	case rssi >= -50:
		return 1.0
	case rssi >= -60:
		return 2.0
	case rssi >= -70:
		return 3.0
	case rssi >= -80:
		return 4.0
	default:
		return 5.0
	}
}
