// Package records archives completed bookings into the clinic's Postgres
// database. The conversation engine treats this as best effort: the calendar
// provider stays the source of truth for scheduling.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raaslabs/raas-platform/internal/calendar"
	"github.com/raaslabs/raas-platform/internal/session"
)

// Appointment is one archived booking row.
type Appointment struct {
	ID              int64
	PatientID       int64
	DentistCode     string
	CalComBookingID string
	StartTime       time.Time
	EndTime         time.Time
	Status          string
	Reason          string
	CreatedAt       time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("records: db cannot be nil")
	}
	return &Store{db: db}
}

// EnsurePatient returns the id of the patient matching the contact record,
// inserting a new row when none exists yet.
func (s *Store) EnsurePatient(ctx context.Context, patient session.Patient) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM patients WHERE (phone = $1 AND phone <> '') OR (email = $2 AND email <> '') LIMIT 1`,
		patient.Phone, patient.Email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("records: patient lookup: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO patients (name, phone, email) VALUES ($1, $2, $3) RETURNING id`,
		patient.Name, patient.Phone, patient.Email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("records: patient insert: %w", err)
	}
	return id, nil
}

// RecordAppointment archives a booking against the patient. Slot times are
// RFC3339 strings as produced by the calendar adapters.
func (s *Store) RecordAppointment(ctx context.Context, patientID int64, dentistCode string, slot calendar.Slot, booking *calendar.Booking) error {
	if booking == nil {
		return nil
	}

	start, err := time.Parse(time.RFC3339, slot.StartTime)
	if err != nil {
		return fmt.Errorf("records: slot start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, slot.EndTime)
	if err != nil {
		return fmt.Errorf("records: slot end time: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appointments (patient_id, dentist_code, calcom_booking_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		patientID, dentistCode, booking.CalComBookingID, start, end, calendar.NormalizeBookingStatus(booking.Status))
	if err != nil {
		return fmt.Errorf("records: appointment insert: %w", err)
	}
	return nil
}

// ListAppointmentsByPatient returns the patient's archived bookings, newest first.
func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, dentist_code, calcom_booking_id, start_time, end_time, status, reason, created_at
		FROM appointments WHERE patient_id = $1 ORDER BY start_time DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("records: appointment list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		var bookingID, reason sql.NullString
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DentistCode, &bookingID,
			&a.StartTime, &a.EndTime, &a.Status, &reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("records: appointment scan: %w", err)
		}
		a.CalComBookingID = bookingID.String
		a.Reason = reason.String
		out = append(out, a)
	}
	if out == nil {
		out = []Appointment{}
	}
	return out, rows.Err()
}
