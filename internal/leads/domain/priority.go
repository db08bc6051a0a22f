package domain

// Priority is the dashboard label derived from the overall score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priority thresholds on the overall score. Every caller labels through PriorityFor.
const (
	HighPriorityThreshold   = 70
	MediumPriorityThreshold = 40
)

// PriorityFor labels an overall score.
func PriorityFor(overall int) Priority {
	switch {
	case overall >= HighPriorityThreshold:
		return PriorityHigh
	case overall >= MediumPriorityThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ParsePriority accepts the three label strings.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(raw) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(raw), true
	}
	return "", false
}

// ScoreRange returns the inclusive overall-score bounds of a priority bucket.
func (p Priority) ScoreRange() (min, max int) {
	switch p {
	case PriorityHigh:
		return HighPriorityThreshold, 100
	case PriorityMedium:
		return MediumPriorityThreshold, HighPriorityThreshold - 1
	default:
		return 0, MediumPriorityThreshold - 1
	}
}
