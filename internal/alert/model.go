package alert

import (
	"encoding/json"
	"time"
)

// Alert is the canonical unit held by the store. Identity is ID alone; all
// patient fields are descriptive and never used for store operations.
type Alert struct {
	ID          string          `json:"id"`
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name,omitempty"`
	Department  string          `json:"department,omitempty"`
	RoomNumber  string          `json:"room_number,omitempty"`
	BedNumber   string          `json:"bed_number,omitempty"`
	Age         int             `json:"age,omitempty"`
	Gender      string          `json:"gender,omitempty"`

	// Severity is the explicit backend tag (critical|high|medium|low),
	// empty when the backend sent none. It is independent of RiskScore.
	Severity string `json:"severity,omitempty"`

	// RiskScore is the upstream deterioration likelihood in [0,1], nil when
	// absent. Out-of-range values are passed through unclamped.
	RiskScore *float64 `json:"risk_score,omitempty"`

	Acknowledged bool `json:"is_acknowledged"`

	Message string          `json:"message,omitempty"`
	Title   string          `json:"title,omitempty"`
	Vitals  json.RawMessage `json:"vitals,omitempty"`

	// Timestamp is the backend's ISO-8601 string, passed through opaque.
	Timestamp string `json:"timestamp,omitempty"`
}

// Time parses the alert timestamp for ordering. Absent or unparseable
// timestamps sort as "now".
func (a Alert) Time() time.Time {
	if a.Timestamp == "" {
		return time.Now()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, a.Timestamp); err == nil {
			return t
		}
	}
	return time.Now()
}

// Stats summarizes a snapshot of the store for dashboard headers.
type Stats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Critical     int `json:"critical"`
	HighRisk     int `json:"high_risk"`
	Acknowledged int `json:"acknowledged"`
}
