package alert

// Tier is a single severity label used for badge rendering.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Tiers holds the four membership predicates produced by Classify. The
// predicates are inclusive-OR per tier: an alert tagged "high" with a 0.9
// risk score is a member of both High (tag) and Critical (score). Overlap
// is expected, consumers filter on single predicates.
type Tiers struct {
	Critical bool
	High     bool
	Medium   bool
	Low      bool
}

// Classify evaluates the filter-view membership predicates. The explicit
// severity tag and the numeric risk score each contribute independently; an
// absent score contributes nothing. Low is the fallback tier for alerts
// that match none of the other three. Out-of-range scores are taken
// literally, not clamped.
func Classify(a Alert) Tiers {
	var t Tiers

	score := 0.0
	hasScore := a.RiskScore != nil
	if hasScore {
		score = *a.RiskScore
	}

	t.Critical = a.Severity == string(TierCritical) || (hasScore && score >= 0.8)
	t.High = a.Severity == string(TierHigh) || (hasScore && score >= 0.6 && score < 0.8)
	t.Medium = a.Severity == string(TierMedium) || (hasScore && score >= 0.4 && score < 0.6)
	t.Low = !t.Critical && !t.High && !t.Medium

	return t
}

// DisplayTier picks the single badge label for an alert. Unlike Classify it
// looks at the score only, treating an absent score as 0 and ignoring the
// severity tag entirely. The two rules deliberately disagree for some
// inputs and both are relied on by consumers; do not unify them.
func DisplayTier(a Alert) Tier {
	score := 0.0
	if a.RiskScore != nil {
		score = *a.RiskScore
	}
	switch {
	case score >= 0.8:
		return TierCritical
	case score >= 0.6:
		return TierHigh
	case score >= 0.4:
		return TierMedium
	default:
		return TierLow
	}
}

// SeverityRank maps a tier to its sort weight: critical=3, high=2,
// medium=1, low=0.
func SeverityRank(t Tier) int {
	switch t {
	case TierCritical:
		return 3
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}

// rank resolves the sort weight for an alert: the explicit tag wins when
// present, otherwise the score-only display tier decides.
func rank(a Alert) int {
	switch Tier(a.Severity) {
	case TierCritical, TierHigh, TierMedium, TierLow:
		return SeverityRank(Tier(a.Severity))
	}
	return SeverityRank(DisplayTier(a))
}
