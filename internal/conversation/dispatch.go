package conversation

import (
	"context"
	"fmt"

	"github.com/raaslabs/raas-platform/internal/calendar"
	"github.com/raaslabs/raas-platform/internal/dialogue"
	"github.com/raaslabs/raas-platform/internal/session"
)

// dispatch carries out the side effect of the chosen action. Failures are
// recorded in session metadata and never abort the turn.
func (e *Engine) dispatch(ctx context.Context, sess *session.Session, action dialogue.Action) {
	defer func() {
		if r := recover(); r != nil {
			sess.Metadata.ActionError = fmt.Sprintf("%v", r)
			e.logger.Error("action dispatch panicked", "action", action.Type, "panic", r)
		}
	}()

	sess.Metadata.ActionError = ""

	switch action.Type {
	case dialogue.ActionCheckAvailability:
		e.dispatchCheckAvailability(ctx, sess)
	case dialogue.ActionBookSlot:
		e.dispatchBookSlot(ctx, sess, action)
	case dialogue.ActionConnectStaff:
		sess.Metadata.EscalationRequested = true
		if action.Notes != "" {
			sess.Metadata.EscalationNote = action.Notes
		}
	case dialogue.ActionSessionComplete:
		sess.Metadata.SessionClosed = true
	case dialogue.ActionCollectInfo,
		dialogue.ActionAwaitSlotSelection,
		dialogue.ActionRequestReschedule,
		dialogue.ActionCancelBooking,
		dialogue.ActionConfirmationPrompt,
		dialogue.ActionSmallTalk:
		// Status advance only, no side effect.
	default:
		e.logger.Warn("unknown action type ignored", "action", action.Type)
	}
}

func (e *Engine) dispatchCheckAvailability(ctx context.Context, sess *session.Session) {
	dentistID := sess.Preferences.DentistID
	if dentistID == "" {
		dentistID = e.dentistID
	}

	slots, err := e.scheduler.CheckAvailability(ctx, calendar.AvailabilityRequest{
		Date:        sess.Preferences.Date,
		TimeWindow:  sess.Preferences.TimeWindow,
		DentistID:   dentistID,
		ServiceType: sess.Preferences.ServiceType,
	})
	if err != nil {
		sess.Metadata.ActionError = fmt.Sprintf("availability check failed: %v", err)
		e.metrics.ObserveCalendarError()
		e.logger.Error("availability check failed", "provider", e.scheduler.Name(), "error", err)
		return
	}

	sess.SetAvailableSlots(slots)
}

func (e *Engine) dispatchBookSlot(ctx context.Context, sess *session.Session, action dialogue.Action) {
	slot, ok := resolveSlot(sess.AvailableSlots, action)
	if !ok {
		sess.Metadata.BookingError = session.BookingErrSlotNotFound
		return
	}

	if sess.Patient.Email == "" {
		sess.Metadata.BookingError = session.BookingErrMissingEmail
		return
	}

	booking, err := e.scheduler.BookAppointment(ctx, calendar.BookingRequest{
		Slot:         slot,
		PatientName:  sess.Patient.Name,
		PatientPhone: sess.Patient.Phone,
		PatientEmail: sess.Patient.Email,
		Reason:       sess.Preferences.Reason,
	})
	if err != nil {
		sess.Metadata.ActionError = fmt.Sprintf("booking failed: %v", err)
		e.metrics.ObserveCalendarError()
		e.logger.Error("booking failed", "provider", e.scheduler.Name(), "slot_id", slot.SlotID, "error", err)
		return
	}

	sess.Metadata.BookingError = ""
	if booking == nil {
		e.logger.Warn("booking produced no result", "provider", e.scheduler.Name(), "slot_id", slot.SlotID)
		return
	}

	sess.Metadata.LatestBooking = booking
	sess.ApplyBookingStatus(booking)
	e.metrics.ObserveBooking(booking.Status)

	e.archiveBooking(ctx, sess, slot, booking)
	e.notifyBooking(ctx, sess, slot, booking)
}

// resolveSlot picks the booking target by index when it is in range, else by
// slot id lookup.
func resolveSlot(slots []calendar.Slot, action dialogue.Action) (calendar.Slot, bool) {
	if action.SlotIndex != nil {
		idx := *action.SlotIndex
		if idx >= 0 && idx < len(slots) {
			return slots[idx], true
		}
	}
	if action.SlotID != "" {
		for _, slot := range slots {
			if slot.SlotID == action.SlotID {
				return slot, true
			}
		}
	}
	return calendar.Slot{}, false
}

// archiveBooking is best effort: clinic records lag behind the calendar
// rather than blocking the patient's reply.
func (e *Engine) archiveBooking(ctx context.Context, sess *session.Session, slot calendar.Slot, booking *calendar.Booking) {
	if e.archive == nil {
		return
	}

	patientID, err := e.archive.EnsurePatient(ctx, sess.Patient)
	if err != nil {
		e.logger.Error("patient archive failed", "error", err)
		return
	}
	if err := e.archive.RecordAppointment(ctx, patientID, slot.DentistID, slot, booking); err != nil {
		e.logger.Error("appointment archive failed", "booking_id", booking.CalComBookingID, "error", err)
	}
}

func (e *Engine) notifyBooking(ctx context.Context, sess *session.Session, slot calendar.Slot, booking *calendar.Booking) {
	if e.notifier == nil || sess.Patient.Email == "" {
		return
	}

	err := e.notifier.SendBookingNotice(ctx, sess.Patient.Email, sess.Patient.Name, slot, booking.Status)
	if err != nil {
		e.logger.Error("booking notice failed", "to", sess.Patient.Email, "error", err)
	}
}
