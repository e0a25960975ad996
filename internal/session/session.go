// Package session holds the per-conversation state machine: the persisted
// session record, its status lattice, and the merge rules for extracted
// patient data.
package session

import (
	"github.com/raaslabs/raas-platform/internal/calendar"
)

// Roles for history turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryMaxEntries bounds the retained dialogue history per session.
const HistoryMaxEntries = 10

// Patient is the structured contact record collected during the conversation.
type Patient struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Preferences captures scheduling preferences collected during the conversation.
type Preferences struct {
	Date        string `json:"date,omitempty"`
	TimeWindow  string `json:"time_window,omitempty"`
	DentistID   string `json:"dentist_id,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Turn is one entry of the bounded dialogue history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Metadata carries the transient per-session flags the dispatcher and the
// policies communicate through.
type Metadata struct {
	LastAction          string            `json:"last_action,omitempty"`
	ActionError         string            `json:"action_error,omitempty"`
	BookingError        string            `json:"booking_error,omitempty"`
	PreferredDateError  string            `json:"preferred_date_error,omitempty"`
	AvailableSlotCount  int               `json:"available_slot_count,omitempty"`
	SlotsPresented      bool              `json:"slots_presented,omitempty"`
	LatestBooking       *calendar.Booking `json:"latest_booking,omitempty"`
	EscalationRequested bool              `json:"escalation_requested,omitempty"`
	EscalationNote      string            `json:"escalation_note,omitempty"`
	SessionClosed       bool              `json:"session_closed,omitempty"`
}

// Session is the unit of conversational state, keyed by an opaque session id.
type Session struct {
	Status         Status          `json:"status"`
	Patient        Patient         `json:"patient"`
	Preferences    Preferences     `json:"preferences"`
	AvailableSlots []calendar.Slot `json:"available_slots"`
	Extracted      map[string]any  `json:"extracted"`
	History        []Turn          `json:"history"`
	Metadata       Metadata        `json:"metadata"`
}

// New returns a fresh default session.
func New() *Session {
	return &Session{
		Status:         StatusNew,
		AvailableSlots: []calendar.Slot{},
		Extracted:      map[string]any{},
		History:        []Turn{},
	}
}

// AppendHistory records a dialogue turn, evicting the oldest entries once the
// history exceeds HistoryMaxEntries.
func (s *Session) AppendHistory(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if overflow := len(s.History) - HistoryMaxEntries; overflow > 0 {
		s.History = s.History[overflow:]
	}
}

// RecentHistory returns up to n of the most recent turns, oldest first.
func (s *Session) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// SetAvailableSlots replaces the cached availability result wholesale and
// records the count. Slots are never partially mutated.
func (s *Session) SetAvailableSlots(slots []calendar.Slot) {
	if slots == nil {
		slots = []calendar.Slot{}
	}
	s.AvailableSlots = slots
	s.Metadata.AvailableSlotCount = len(slots)
}

// IsTerminal reports whether the session should no longer persist: a
// terminal status, an explicit close, or a terminal booking lifecycle state.
func (s *Session) IsTerminal() bool {
	if s.Status.Terminal() {
		return true
	}
	if s.Metadata.SessionClosed {
		return true
	}
	if b := s.Metadata.LatestBooking; b != nil {
		if Status(calendar.NormalizeBookingStatus(b.Status)).Terminal() {
			return true
		}
	}
	return false
}
