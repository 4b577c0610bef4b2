package quality

// Status is the ordinal sync classification of a line, best first.
type Status int

const (
	Perfect Status = iota
	Excellent
	Good
	Acceptable
	NeedsAdjustment
	Poor
	VeryPoor
)

// statusCount is the number of statuses.
const statusCount = int(VeryPoor) + 1

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Perfect:
		return "perfect"
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Acceptable:
		return "acceptable"
	case NeedsAdjustment:
		return "needs_adjustment"
	case Poor:
		return "poor"
	case VeryPoor:
		return "very_poor"
	default:
		return "unknown"
	}
}

// NeedsSync reports whether lines with this status should be resynced.
func (s Status) NeedsSync() bool {
	return s >= NeedsAdjustment
}

// Recommendation returns the fixed advice for the status.
func (s Status) Recommendation() string {
	switch s {
	case Perfect:
		return "Sync is perfect, ready for export"
	case Excellent:
		return "Sync is excellent, safe to continue"
	case Good:
		return "Sync is good, minor tuning may help"
	case Acceptable:
		return "Sync is acceptable, consider adjusting the speed"
	case NeedsAdjustment:
		return "Needs adjustment, run auto sync"
	case Poor:
		return "Poor sync, remeasure the duration and check the settings"
	default:
		return "Very poor sync, check the text and the settings"
	}
}

// StatusFor maps an accuracy percentage to a status.
func StatusFor(accuracy float64) Status {
	switch {
	case accuracy >= 95:
		return Perfect
	case accuracy >= 90:
		return Excellent
	case accuracy >= 85:
		return Good
	case accuracy >= 80:
		return Acceptable
	case accuracy >= 75:
		return NeedsAdjustment
	case accuracy >= 70:
		return Poor
	default:
		return VeryPoor
	}
}

// Grade maps an overall accuracy percentage to a letter grade.
func Grade(accuracy float64) string {
	switch {
	case accuracy >= 95:
		return "A+"
	case accuracy >= 90:
		return "A"
	case accuracy >= 85:
		return "B+"
	case accuracy >= 80:
		return "B"
	case accuracy >= 75:
		return "C+"
	case accuracy >= 70:
		return "C"
	case accuracy >= 60:
		return "D"
	default:
		return "F"
	}
}
