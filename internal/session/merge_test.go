package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var mergeNow = time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)

func TestMergeStructuredFields(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{
		"patient_name":          "Test User",
		"patient_phone":         "9999999999",
		"patient_email":         "test@example.com",
		"preferred_date":        "2025-11-15",
		"preferred_time_window": "evening",
		"dentist_id":            "dr_verma",
		"service_type":          "consultation",
		"reason":                "tooth pain",
	}, mergeNow)

	assert.Equal(t, "Test User", s.Patient.Name)
	assert.Equal(t, "9999999999", s.Patient.Phone)
	assert.Equal(t, "test@example.com", s.Patient.Email)
	assert.Equal(t, "2025-11-15", s.Preferences.Date)
	assert.Equal(t, "evening", s.Preferences.TimeWindow)
	assert.Equal(t, "dr_verma", s.Preferences.DentistID)
	assert.Equal(t, "consultation", s.Preferences.ServiceType)
	assert.Equal(t, "tooth pain", s.Preferences.Reason)
	assert.Len(t, s.Extracted, 8)
}

func TestMergeNullValuesAreIgnored(t *testing.T) {
	s := New()
	s.Patient.Name = "Existing"

	s.MergeExtracted(map[string]any{
		"patient_name":  nil,
		"patient_phone": nil,
	}, mergeNow)

	assert.Equal(t, "Existing", s.Patient.Name, "nil means no new information, not a clear")
	assert.Empty(t, s.Patient.Phone)
	assert.Empty(t, s.Extracted)
}

func TestMergeLastWriteWins(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"patient_name": "First"}, mergeNow)
	s.MergeExtracted(map[string]any{"patient_name": "Second"}, mergeNow)
	assert.Equal(t, "Second", s.Patient.Name)
	assert.Equal(t, "Second", s.Extracted["patient_name"])
}

func TestMergePastDateRejected(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"preferred_date": "2020-01-01"}, mergeNow)

	assert.Equal(t, DateErrPastDate, s.Metadata.PreferredDateError)
	assert.Empty(t, s.Preferences.Date)
}

func TestMergeInvalidDateRejected(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"preferred_date": "not-a-date"}, mergeNow)

	assert.Equal(t, DateErrInvalidFormat, s.Metadata.PreferredDateError)
	assert.Empty(t, s.Preferences.Date)
}

func TestMergeValidDateClearsError(t *testing.T) {
	s := New()
	s.Metadata.PreferredDateError = DateErrPastDate

	s.MergeExtracted(map[string]any{"preferred_date": "2025-11-15"}, mergeNow)

	assert.Empty(t, s.Metadata.PreferredDateError)
	assert.Equal(t, "2025-11-15", s.Preferences.Date)
}

func TestMergeTodayIsAccepted(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"preferred_date": "2025-11-01"}, mergeNow)
	assert.Empty(t, s.Metadata.PreferredDateError)
	assert.Equal(t, "2025-11-01", s.Preferences.Date)
}

func TestMergeTimestampKeepsCalendarDate(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"preferred_date": "2025-11-15T18:00:00+05:30"}, mergeNow)
	assert.Empty(t, s.Metadata.PreferredDateError)
	assert.Equal(t, "2025-11-15", s.Preferences.Date)
}

func TestMergeEmailClearsBookingError(t *testing.T) {
	s := New()
	s.Metadata.BookingError = BookingErrMissingEmail

	s.MergeExtracted(map[string]any{"patient_email": "test@example.com"}, mergeNow)

	assert.Empty(t, s.Metadata.BookingError)
	assert.Equal(t, "test@example.com", s.Patient.Email)
}

func TestMergeEmailKeepsUnrelatedBookingError(t *testing.T) {
	s := New()
	s.Metadata.BookingError = BookingErrSlotNotFound

	s.MergeExtracted(map[string]any{"patient_email": "test@example.com"}, mergeNow)

	assert.Equal(t, BookingErrSlotNotFound, s.Metadata.BookingError)
}

func TestMergeNumericPhoneDoesNotTurnScientific(t *testing.T) {
	s := New()
	// JSON decoding hands numbers over as float64.
	s.MergeExtracted(map[string]any{"patient_phone": float64(9999999999)}, mergeNow)
	assert.Equal(t, "9999999999", s.Patient.Phone)
}

func TestMergeUnmappedEntityOnlyAudited(t *testing.T) {
	s := New()
	s.MergeExtracted(map[string]any{"insurance_provider": "Acme"}, mergeNow)

	assert.Equal(t, "Acme", s.Extracted["insurance_provider"])
	assert.Equal(t, Patient{}, s.Patient)
	assert.Equal(t, Preferences{}, s.Preferences)
}
