package session

import "github.com/raaslabs/raas-platform/internal/calendar"

// Status is one value of the conversation status lattice.
type Status string

const (
	StatusNew                   Status = "NEW"
	StatusGreeting              Status = "GREETING"
	StatusCollectingInfo        Status = "COLLECTING_INFO"
	StatusAwaitingSlotSelection Status = "AWAITING_SLOT_SELECTION"
	StatusBooking               Status = "BOOKING"
	StatusPending               Status = "PENDING"
	StatusRescheduleRequested   Status = "RESCHEDULE_REQUESTED"
	StatusConfirmed             Status = "CONFIRMED"
	StatusCancelled             Status = "CANCELLED"
	StatusClosed                Status = "CLOSED"
)

// statusPriority fixes the total order of the lattice. A session only moves
// to a status of equal or higher priority, never back.
var statusPriority = map[Status]int{
	StatusNew:                   0,
	StatusGreeting:              1,
	StatusCollectingInfo:        2,
	StatusAwaitingSlotSelection: 3,
	StatusBooking:               4,
	StatusPending:               5,
	StatusRescheduleRequested:   6,
	StatusConfirmed:             7,
	StatusCancelled:             7,
	StatusClosed:                8,
}

// actionStatus maps an emitted action type to its candidate status.
var actionStatus = map[string]Status{
	"COLLECT_INFO":         StatusCollectingInfo,
	"CHECK_AVAILABILITY":   StatusCollectingInfo,
	"AWAIT_SLOT_SELECTION": StatusAwaitingSlotSelection,
	"BOOK_SLOT":            StatusBooking,
	"CONFIRMATION_PROMPT":  StatusBooking,
	"REQUEST_RESCHEDULE":   StatusRescheduleRequested,
	"CANCEL_BOOKING":       StatusCancelled,
	"SESSION_COMPLETE":     StatusClosed,
}

// Priority returns the lattice priority of s; unknown statuses rank lowest.
func (s Status) Priority() int {
	return statusPriority[s]
}

// Terminal reports whether s ends the conversation.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusClosed:
		return true
	}
	return false
}

// advance applies candidate iff it does not regress the lattice.
func (s *Session) advance(candidate Status) {
	if _, known := statusPriority[candidate]; !known {
		return
	}
	if candidate.Priority() >= s.Status.Priority() {
		s.Status = candidate
	}
}

// AdvanceForAction transitions the session status based on the emitted
// action type. SMALL_TALK promotes NEW to GREETING on the first turn only;
// afterwards it leaves the status untouched.
func (s *Session) AdvanceForAction(actionType string) {
	if actionType == "" {
		return
	}

	candidate, ok := actionStatus[actionType]
	if actionType == "SMALL_TALK" && s.Status == StatusNew {
		candidate, ok = StatusGreeting, true
	}
	if !ok {
		return
	}
	s.advance(candidate)
}

// ApplyBookingStatus elevates the session status from a booking lifecycle
// update. Only the three booking lifecycle values participate.
func (s *Session) ApplyBookingStatus(booking *calendar.Booking) {
	if booking == nil || booking.Status == "" {
		return
	}

	normalized := calendar.NormalizeBookingStatus(booking.Status)
	switch normalized {
	case calendar.BookingStatusPending, calendar.BookingStatusConfirmed, calendar.BookingStatusCancelled:
		s.advance(Status(normalized))
	}
}
