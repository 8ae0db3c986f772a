package alert

import "encoding/json"

// raw mirrors one element of the backend list response. The backend has
// shipped two generations of field names (alert_id vs id, is_acknowledged vs
// the legacy acknowledged column), so both are accepted here and resolved
// into the canonical Alert exactly once.
type raw struct {
	AlertID     string          `json:"alert_id"`
	ID          string          `json:"id"`
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name"`
	Department  string          `json:"department"`
	RoomNumber  string          `json:"room_number"`
	BedNumber   string          `json:"bed_number"`
	Age         int             `json:"age"`
	Gender      string          `json:"gender"`
	Severity    string          `json:"severity"`
	RiskScore   *float64        `json:"risk_score"`
	IsAck       *bool           `json:"is_acknowledged"`
	LegacyAck   *bool           `json:"acknowledged"`
	Message     string          `json:"message"`
	Title       string          `json:"title"`
	Vitals      json.RawMessage `json:"vitals"`
	Timestamp   string          `json:"timestamp"`
}

// FromRaw resolves one raw backend element into a canonical Alert.
func FromRaw(r raw) Alert {
	id := r.AlertID
	if id == "" {
		id = r.ID
	}

	ack := false
	switch {
	case r.IsAck != nil:
		ack = *r.IsAck
	case r.LegacyAck != nil:
		ack = *r.LegacyAck
	}

	return Alert{
		ID:           id,
		PatientID:    r.PatientID,
		PatientName:  r.PatientName,
		Department:   r.Department,
		RoomNumber:   r.RoomNumber,
		BedNumber:    r.BedNumber,
		Age:          r.Age,
		Gender:       r.Gender,
		Severity:     r.Severity,
		RiskScore:    r.RiskScore,
		Acknowledged: ack,
		Message:      r.Message,
		Title:        r.Title,
		Vitals:       r.Vitals,
		Timestamp:    r.Timestamp,
	}
}

// DecodePayload converts a backend list response into canonical alerts. The
// backend answers either {"alerts":[...]} or a bare array; anything else
// (including error bodies and truncated JSON) degrades to an empty list.
// It never returns an error: a malformed payload is not a reason to lose
// the last good snapshot upstream.
func DecodePayload(body []byte) []Alert {
	var envelope struct {
		Alerts []raw `json:"alerts"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Alerts != nil {
		return fromRaws(envelope.Alerts)
	}

	var bare []raw
	if err := json.Unmarshal(body, &bare); err == nil {
		return fromRaws(bare)
	}

	return []Alert{}
}

func fromRaws(rs []raw) []Alert {
	out := make([]Alert, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromRaw(r))
	}
	return out
}
