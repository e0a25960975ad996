package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaslabs/raas-platform/internal/calendar"
	"github.com/raaslabs/raas-platform/internal/dialogue"
	"github.com/raaslabs/raas-platform/internal/session"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

type scriptedPolicy struct {
	decision dialogue.Decision
}

func (p *scriptedPolicy) Decide(context.Context, *session.Session, string, string) (dialogue.Decision, error) {
	return p.decision, nil
}

type fakeScheduler struct {
	slots    []calendar.Slot
	booking  *calendar.Booking
	checkErr error
	bookErr  error

	checkCalls int
	bookCalls  int
	lastBook   calendar.BookingRequest
}

func (f *fakeScheduler) Name() string { return "fake" }

func (f *fakeScheduler) CheckAvailability(_ context.Context, _ calendar.AvailabilityRequest) ([]calendar.Slot, error) {
	f.checkCalls++
	return f.slots, f.checkErr
}

func (f *fakeScheduler) BookAppointment(_ context.Context, req calendar.BookingRequest) (*calendar.Booking, error) {
	f.bookCalls++
	f.lastBook = req
	return f.booking, f.bookErr
}

type fakeArchive struct {
	patientCalls     int
	appointmentCalls int
	patientErr       error
}

func (f *fakeArchive) EnsurePatient(context.Context, session.Patient) (int64, error) {
	f.patientCalls++
	return 7, f.patientErr
}

func (f *fakeArchive) RecordAppointment(context.Context, int64, string, calendar.Slot, *calendar.Booking) error {
	f.appointmentCalls++
	return nil
}

type fakeNotifier struct {
	calls int
	to    string
}

func (f *fakeNotifier) SendBookingNotice(_ context.Context, toEmail, _ string, _ calendar.Slot, _ string) error {
	f.calls++
	f.to = toEmail
	return nil
}

func testStore(t *testing.T) *session.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewStore(client, time.Hour, logging.New("error"))
}

func testSlots() []calendar.Slot {
	return []calendar.Slot{
		{SlotID: "s1", StartTime: "2030-06-15T18:00:00+05:30", EndTime: "2030-06-15T18:30:00+05:30", DentistID: "dr_verma"},
		{SlotID: "s2", StartTime: "2030-06-15T19:00:00+05:30", EndTime: "2030-06-15T19:30:00+05:30", DentistID: "dr_verma"},
	}
}

func newTestEngine(t *testing.T, decision dialogue.Decision, sched *fakeScheduler) (*Engine, *session.Store) {
	t.Helper()
	store := testStore(t)
	chain := dialogue.NewChain(&scriptedPolicy{decision: decision}, dialogue.NewRulePolicy(), logging.New("error"))
	eng := NewEngine(EngineConfig{
		Store:            store,
		Policy:           chain,
		Scheduler:        sched,
		Logger:           logging.New("error"),
		DefaultDentistID: "dr_verma",
	})
	return eng, store
}

func TestProcessTurnRejectsInvalidRequest(t *testing.T) {
	eng, _ := newTestEngine(t, dialogue.Decision{}, &fakeScheduler{})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{Channel: "web", UserID: "u1"})
	assert.Error(t, err)
}

func TestProcessTurnCheckAvailability(t *testing.T) {
	sched := &fakeScheduler{slots: testSlots()}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Checking slots now.",
		Action:      dialogue.Action{Type: dialogue.ActionCheckAvailability},
	}, sched)

	resp, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "evening please",
	})
	require.NoError(t, err)
	assert.Equal(t, "Checking slots now.", resp.ReplyToUser)

	sess := store.Load(context.Background(), "sess-1")
	assert.Equal(t, 1, sched.checkCalls)
	assert.Len(t, sess.AvailableSlots, 2)
	assert.Equal(t, 2, sess.Metadata.AvailableSlotCount)
	assert.Equal(t, session.StatusCollectingInfo, sess.Status)
	require.Len(t, sess.History, 2)
	assert.Equal(t, session.RoleUser, sess.History[0].Role)
	assert.Equal(t, session.RoleAssistant, sess.History[1].Role)
}

func TestProcessTurnCheckAvailabilityFailureDegrades(t *testing.T) {
	sched := &fakeScheduler{checkErr: errors.New("calendar down")}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "One moment.",
		Action:      dialogue.Action{Type: dialogue.ActionCheckAvailability},
	}, sched)

	resp, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "any time",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ReplyToUser)

	sess := store.Load(context.Background(), "sess-1")
	assert.Contains(t, sess.Metadata.ActionError, "calendar down")
	assert.Empty(t, sess.AvailableSlots)
}

func seedSession(t *testing.T, store *session.Store, id string, mutate func(*session.Session)) {
	t.Helper()
	s := session.New()
	mutate(s)
	require.NoError(t, store.Save(context.Background(), id, s))
}

func TestProcessTurnBookSlotByIndex(t *testing.T) {
	idx := 0
	sched := &fakeScheduler{booking: &calendar.Booking{CalComBookingID: "b1", Status: calendar.BookingStatusPending}}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Sending your request.",
		Action:      dialogue.Action{Type: dialogue.ActionBookSlot, SlotIndex: &idx},
	}, sched)

	archive := &fakeArchive{}
	notifier := &fakeNotifier{}
	eng.archive = archive
	eng.notifier = notifier

	seedSession(t, store, "sess-1", func(s *session.Session) {
		s.Patient = session.Patient{Name: "Test User", Phone: "9999999999", Email: "t@example.com"}
		s.SetAvailableSlots(testSlots())
	})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sched.bookCalls)
	assert.Equal(t, "s1", sched.lastBook.Slot.SlotID)
	assert.Equal(t, "t@example.com", sched.lastBook.PatientEmail)

	sess := store.Load(context.Background(), "sess-1")
	require.NotNil(t, sess.Metadata.LatestBooking)
	assert.Equal(t, calendar.BookingStatusPending, sess.Metadata.LatestBooking.Status)
	assert.Equal(t, session.StatusPending, sess.Status)
	assert.Empty(t, sess.Metadata.BookingError)
	assert.Equal(t, 1, archive.patientCalls)
	assert.Equal(t, 1, archive.appointmentCalls)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "t@example.com", notifier.to)
}

func TestProcessTurnBookSlotBySlotID(t *testing.T) {
	sched := &fakeScheduler{booking: &calendar.Booking{CalComBookingID: "b2", Status: calendar.BookingStatusPending}}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Booking the later slot.",
		Action:      dialogue.Action{Type: dialogue.ActionBookSlot, SlotID: "s2"},
	}, sched)

	seedSession(t, store, "sess-1", func(s *session.Session) {
		s.Patient.Email = "t@example.com"
		s.SetAvailableSlots(testSlots())
	})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "the 7pm one",
	})
	require.NoError(t, err)
	assert.Equal(t, "s2", sched.lastBook.Slot.SlotID)
}

func TestProcessTurnBookingGuardMissingEmail(t *testing.T) {
	idx := 0
	sched := &fakeScheduler{}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Booking now.",
		Action:      dialogue.Action{Type: dialogue.ActionBookSlot, SlotIndex: &idx},
	}, sched)

	seedSession(t, store, "sess-1", func(s *session.Session) {
		s.Patient = session.Patient{Name: "Test User", Phone: "9999999999"}
		s.SetAvailableSlots(testSlots())
	})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "1",
	})
	require.NoError(t, err)

	sess := store.Load(context.Background(), "sess-1")
	assert.Equal(t, 0, sched.bookCalls)
	assert.Equal(t, session.BookingErrMissingEmail, sess.Metadata.BookingError)
	assert.LessOrEqual(t, sess.Status.Priority(), session.StatusBooking.Priority())
}

func TestProcessTurnBookSlotUnresolved(t *testing.T) {
	idx := 5
	sched := &fakeScheduler{}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Booking now.",
		Action:      dialogue.Action{Type: dialogue.ActionBookSlot, SlotIndex: &idx},
	}, sched)

	seedSession(t, store, "sess-1", func(s *session.Session) {
		s.Patient.Email = "t@example.com"
		s.SetAvailableSlots(testSlots())
	})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "6",
	})
	require.NoError(t, err)

	sess := store.Load(context.Background(), "sess-1")
	assert.Equal(t, 0, sched.bookCalls)
	assert.Equal(t, session.BookingErrSlotNotFound, sess.Metadata.BookingError)
}

func TestProcessTurnNullBookingDegrades(t *testing.T) {
	idx := 0
	sched := &fakeScheduler{booking: nil}
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Booking now.",
		Action:      dialogue.Action{Type: dialogue.ActionBookSlot, SlotIndex: &idx},
	}, sched)

	seedSession(t, store, "sess-1", func(s *session.Session) {
		s.Patient.Email = "t@example.com"
		s.SetAvailableSlots(testSlots())
	})

	resp, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ReplyToUser)

	sess := store.Load(context.Background(), "sess-1")
	assert.Nil(t, sess.Metadata.LatestBooking)
	assert.Empty(t, sess.Metadata.BookingError)
}

func TestProcessTurnConnectStaff(t *testing.T) {
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Connecting you with our staff.",
		Action:      dialogue.Action{Type: dialogue.ActionConnectStaff, Notes: "billing question"},
	}, &fakeScheduler{})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "I have a billing question",
	})
	require.NoError(t, err)

	sess := store.Load(context.Background(), "sess-1")
	assert.True(t, sess.Metadata.EscalationRequested)
	assert.Equal(t, "billing question", sess.Metadata.EscalationNote)
}

func TestProcessTurnSessionCompleteResetsOnNextLoad(t *testing.T) {
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Goodbye!",
		Action:      dialogue.Action{Type: dialogue.ActionSessionComplete},
	}, &fakeScheduler{})

	_, err := eng.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "bye",
	})
	require.NoError(t, err)

	// The closed session is terminal, so the next load starts fresh.
	sess := store.Load(context.Background(), "sess-1")
	assert.Equal(t, session.StatusNew, sess.Status)
	assert.Empty(t, sess.History)
}

func TestProcessTurnHistoryStaysBounded(t *testing.T) {
	eng, store := newTestEngine(t, dialogue.Decision{
		ReplyToUser: "Noted.",
		Action:      dialogue.Action{Type: dialogue.ActionCollectInfo},
	}, &fakeScheduler{})

	for i := 0; i < 12; i++ {
		_, err := eng.ProcessTurn(context.Background(), TurnRequest{
			SessionID: "sess-1", Channel: "web", UserID: "u1", MessageText: "more",
		})
		require.NoError(t, err)
	}

	sess := store.Load(context.Background(), "sess-1")
	assert.Len(t, sess.History, session.HistoryMaxEntries)
}
