package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/raaslabs/raas-platform/pkg/logging"
)

// GoogleConfig holds configuration for the Google Calendar adapter.
type GoogleConfig struct {
	CalendarID   string
	DentistID    string
	ClinicTZ     string
	SlotDuration time.Duration
}

// GoogleAdapter serves availability from a Google calendar's free/busy data
// and books by inserting events. Like the Cal.com adapter it degrades to the
// deterministic stub schedule when the service is unreachable.
type GoogleAdapter struct {
	service  *gcal.Service
	cfg      GoogleConfig
	location *time.Location
	stub     *CalComClient
	logger   *logging.Logger
}

var _ Scheduler = (*GoogleAdapter)(nil)

// NewGoogleAdapter creates a Google Calendar adapter. The service may be nil,
// in which case every call serves the stub schedule.
func NewGoogleAdapter(service *gcal.Service, cfg GoogleConfig, logger *logging.Logger) *GoogleAdapter {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = 30 * time.Minute
	}
	loc, err := time.LoadLocation(cfg.ClinicTZ)
	if err != nil || cfg.ClinicTZ == "" {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	stub := NewCalComClient(CalComConfig{
		DentistID:    cfg.DentistID,
		ClinicTZ:     cfg.ClinicTZ,
		SlotDuration: cfg.SlotDuration,
	}, logger)

	return &GoogleAdapter{
		service:  service,
		cfg:      cfg,
		location: loc,
		stub:     stub,
		logger:   logger,
	}
}

// Name returns the adapter identifier.
func (g *GoogleAdapter) Name() string { return "google" }

// windowHours maps a time window preference to candidate start hours.
func windowHours(window string) []int {
	switch window {
	case "morning":
		return []int{9, 10, 11}
	case "afternoon":
		return []int{13, 14, 15, 16}
	case "evening":
		return []int{17, 18, 19}
	}
	return []int{9, 11, 13, 15, 17, 19}
}

// CheckAvailability queries free/busy for the requested date and offers the
// open start times inside the preferred window.
func (g *GoogleAdapter) CheckAvailability(ctx context.Context, req AvailabilityRequest) ([]Slot, error) {
	if g.service == nil {
		return g.stub.CheckAvailability(ctx, req)
	}

	date := g.stub.effectiveDate(req.Date)
	day, err := time.ParseInLocation("2006-01-02", date, g.location)
	if err != nil {
		return g.stub.CheckAvailability(ctx, req)
	}

	fb, err := g.service.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: day.Format(time.RFC3339),
		TimeMax: day.AddDate(0, 0, 1).Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: g.cfg.CalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		g.logger.Warn("google free/busy query failed; serving stub schedule",
			"error", err,
			"date", date,
		)
		return g.stub.CheckAvailability(ctx, req)
	}

	var busy []*gcal.TimePeriod
	if cal, ok := fb.Calendars[g.cfg.CalendarID]; ok {
		busy = cal.Busy
	}

	dentist := req.DentistID
	if dentist == "" {
		dentist = g.cfg.DentistID
	}

	var slots []Slot
	for _, hour := range windowHours(req.TimeWindow) {
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, g.location)
		end := start.Add(g.cfg.SlotDuration)
		if overlapsBusy(start, end, busy) {
			continue
		}
		slots = append(slots, Slot{
			SlotID:    fmt.Sprintf("%s-%d", date, hour),
			StartTime: start.Format(time.RFC3339),
			EndTime:   end.Format(time.RFC3339),
			DentistID: dentist,
		})
	}

	if len(slots) == 0 {
		return g.stub.CheckAvailability(ctx, req)
	}
	return slots, nil
}

// BookAppointment inserts an event on the clinic calendar.
func (g *GoogleAdapter) BookAppointment(ctx context.Context, req BookingRequest) (*Booking, error) {
	if g.service == nil {
		return g.stub.BookAppointment(ctx, req)
	}

	summary := "Dental appointment: " + req.PatientName
	event := &gcal.Event{
		Summary:     summary,
		Description: req.Reason,
		Start:       &gcal.EventDateTime{DateTime: req.Slot.StartTime},
		End:         &gcal.EventDateTime{DateTime: req.Slot.EndTime},
		Attendees:   []*gcal.EventAttendee{{Email: req.PatientEmail, DisplayName: req.PatientName}},
	}

	created, err := g.service.Events.Insert(g.cfg.CalendarID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Warn("google event insert failed",
			"error", err,
			"slot_id", req.Slot.SlotID,
		)
		return nil, nil
	}

	return &Booking{
		CalComBookingID: created.Id,
		Status:          NormalizeBookingStatus(created.Status),
		StartTime:       req.Slot.StartTime,
		EndTime:         req.Slot.EndTime,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
	}, nil
}

func overlapsBusy(start, end time.Time, busy []*gcal.TimePeriod) bool {
	for _, period := range busy {
		bStart, err1 := time.Parse(time.RFC3339, period.Start)
		bEnd, err2 := time.Parse(time.RFC3339, period.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start.Before(bEnd) && bStart.Before(end) {
			return true
		}
	}
	return false
}
