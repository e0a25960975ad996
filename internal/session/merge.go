package session

import (
	"fmt"
	"strings"
	"time"
)

// Error codes surfaced through Metadata when user-supplied values fail
// validation. The policy layer turns these into corrective replies.
const (
	DateErrInvalidFormat   = "invalid_format"
	DateErrPastDate        = "past_date"
	BookingErrMissingEmail = "missing_patient_email"
	BookingErrSlotNotFound = "slot_not_found"
)

// MergeExtracted folds a flat mapping of newly extracted entities into the
// session. Nil values mean "no new information" and are skipped. Every
// non-nil value is recorded verbatim into the Extracted audit map; values
// with a structured home overwrite the prior field (last-write-wins).
func (s *Session) MergeExtracted(extracted map[string]any, now time.Time) {
	if len(extracted) == 0 {
		return
	}
	if s.Extracted == nil {
		s.Extracted = map[string]any{}
	}

	for key, value := range extracted {
		if value == nil {
			continue
		}
		s.Extracted[key] = value
		s.applyStructuredField(key, stringify(value), now)
	}
}

func (s *Session) applyStructuredField(key, value string, now time.Time) {
	switch key {
	case "patient_name":
		s.Patient.Name = value
	case "patient_phone":
		s.Patient.Phone = value
	case "patient_email":
		s.Patient.Email = value
		if value != "" && s.Metadata.BookingError == BookingErrMissingEmail {
			s.Metadata.BookingError = ""
		}
	case "preferred_date":
		normalized, errCode := normalizePreferredDate(value, now)
		if errCode != "" {
			s.Metadata.PreferredDateError = errCode
			s.Preferences.Date = ""
			return
		}
		s.Metadata.PreferredDateError = ""
		s.Preferences.Date = normalized
	case "preferred_time_window":
		s.Preferences.TimeWindow = value
	case "dentist_id":
		s.Preferences.DentistID = value
	case "service_type":
		s.Preferences.ServiceType = value
	case "reason":
		s.Preferences.Reason = value
	}
}

// normalizePreferredDate parses an ISO calendar date and rejects dates
// strictly before now's calendar day.
func normalizePreferredDate(value string, now time.Time) (string, string) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", DateErrInvalidFormat
	}

	target, err := time.Parse("2006-01-02", raw)
	if err != nil {
		// Tolerate a full timestamp and keep the calendar date.
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return "", DateErrInvalidFormat
		}
		target = ts
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return "", DateErrPastDate
	}

	return day.Format("2006-01-02"), ""
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		// JSON numbers decode as float64; phone digits must not turn into
		// scientific notation.
		return strings.TrimSuffix(fmt.Sprintf("%.0f", v), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}
