package alert

import (
	"sort"
	"strings"
)

// Search returns the alerts whose patient name, alert ID, patient ID,
// department, or message contains q (case-insensitive). An empty query
// returns the input unchanged.
func Search(alerts []Alert, q string) []Alert {
	if q == "" {
		return alerts
	}
	q = strings.ToLower(q)

	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if containsFold(a.PatientName, q) ||
			containsFold(a.ID, q) ||
			containsFold(a.PatientID, q) ||
			containsFold(a.Department, q) ||
			containsFold(a.Message, q) {
			out = append(out, a)
		}
	}
	return out
}

func containsFold(s, lowered string) bool {
	return strings.Contains(strings.ToLower(s), lowered)
}

// SortByTimestampDesc orders newest first. Alerts without a parseable
// timestamp sort as "now", i.e. to the front.
func SortByTimestampDesc(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Time().After(alerts[j].Time())
	})
}

// SortBySeverityRank orders highest severity first (critical=3 .. low=0).
func SortBySeverityRank(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return rank(alerts[i]) > rank(alerts[j])
	})
}

// SortByPatientName orders lexicographically by patient name.
func SortByPatientName(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].PatientName < alerts[j].PatientName
	})
}
