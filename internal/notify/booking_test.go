package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaslabs/raas-platform/internal/calendar"
)

type captureSender struct {
	last EmailMessage
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.last = msg
	return nil
}

func TestSendBookingNoticePending(t *testing.T) {
	sender := &captureSender{}
	n := NewBookingNotifier(sender, "Dentist Verma Clinic")

	slot := calendar.Slot{StartTime: "2030-06-15T18:00:00+05:30", EndTime: "2030-06-15T18:30:00+05:30"}
	err := n.SendBookingNotice(context.Background(), "t@example.com", "Test User", slot, "PENDING")
	require.NoError(t, err)

	assert.Equal(t, "t@example.com", sender.last.To)
	assert.Contains(t, sender.last.Subject, "request received")
	assert.Contains(t, sender.last.Body, "Hello Test User")
	assert.Contains(t, sender.last.Body, "2030-06-15T18:00:00+05:30")
}

func TestSendBookingNoticeConfirmedStatusMapping(t *testing.T) {
	sender := &captureSender{}
	n := NewBookingNotifier(sender, "")

	err := n.SendBookingNotice(context.Background(), "t@example.com", "", calendar.Slot{}, "ACCEPTED")
	require.NoError(t, err)
	assert.Contains(t, sender.last.Subject, "confirmed")
	assert.Contains(t, sender.last.Body, "Hello there")
}

func TestNewBookingNotifierNilSender(t *testing.T) {
	assert.Nil(t, NewBookingNotifier(nil, "x"))
}
