// Package calendar provides a unified scheduling adapter interface for the
// external calendar providers the clinic can sit on (Cal.com, Google Calendar).
package calendar

import (
	"context"
	"strings"
)

// Booking lifecycle statuses as reported by the calendar provider.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

// Slot is an offered appointment window returned by an availability query.
// Slots are immutable once produced.
type Slot struct {
	SlotID    string `json:"slot_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	DentistID string `json:"dentist_id"`
}

// Booking is the outcome of committing a slot to the provider's calendar.
type Booking struct {
	CalComBookingID string `json:"calcom_booking_id"`
	Status          string `json:"status"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	PatientName     string `json:"patient_name,omitempty"`
	PatientPhone    string `json:"patient_phone,omitempty"`
}

// AvailabilityRequest carries the preference fields the provider needs.
type AvailabilityRequest struct {
	Date        string
	TimeWindow  string
	DentistID   string
	ServiceType string
}

// BookingRequest carries the slot plus the patient contact record.
type BookingRequest struct {
	Slot         Slot
	PatientName  string
	PatientPhone string
	PatientEmail string
	Reason       string
}

// Scheduler is the interface all calendar provider adapters implement.
// Adapters must tolerate being unreachable: CheckAvailability degrades to a
// deterministic stub sequence derived from the requested date, and
// BookAppointment returns (nil, nil) rather than raising past its boundary.
type Scheduler interface {
	// Name returns the adapter identifier (e.g. "calcom", "google").
	Name() string

	CheckAvailability(ctx context.Context, req AvailabilityRequest) ([]Slot, error)

	BookAppointment(ctx context.Context, req BookingRequest) (*Booking, error)
}

// NormalizeBookingStatus uppercases a provider status and maps it onto the
// three lifecycle values. Unknown statuses are returned uppercased as-is so
// callers can ignore them.
func NormalizeBookingStatus(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "ACCEPTED", "CONFIRMED":
		return BookingStatusConfirmed
	case "REJECTED", "CANCELLED", "CANCELED":
		return BookingStatusCancelled
	case "", "PENDING", "AWAITING_HOST":
		return BookingStatusPending
	}
	return s
}
