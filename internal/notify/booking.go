package notify

import (
	"context"
	"fmt"

	"github.com/raaslabs/raas-platform/internal/calendar"
)

// BookingNotifier composes booking notices over an EmailSender. It satisfies
// the conversation engine's Notifier interface.
type BookingNotifier struct {
	sender     EmailSender
	clinicName string
}

func NewBookingNotifier(sender EmailSender, clinicName string) *BookingNotifier {
	if sender == nil {
		return nil
	}
	if clinicName == "" {
		clinicName = "Dentist Verma Clinic"
	}
	return &BookingNotifier{sender: sender, clinicName: clinicName}
}

// SendBookingNotice emails the patient about the state of their booking.
func (n *BookingNotifier) SendBookingNotice(ctx context.Context, toEmail, patientName string, slot calendar.Slot, bookingStatus string) error {
	status := calendar.NormalizeBookingStatus(bookingStatus)

	subject := fmt.Sprintf("%s: appointment request received", n.clinicName)
	intro := "We received your appointment request. The clinic will confirm shortly."
	switch status {
	case calendar.BookingStatusConfirmed:
		subject = fmt.Sprintf("%s: appointment confirmed", n.clinicName)
		intro = "Your appointment is confirmed."
	case calendar.BookingStatusCancelled:
		subject = fmt.Sprintf("%s: appointment cancelled", n.clinicName)
		intro = "Your appointment request was cancelled."
	}

	name := patientName
	if name == "" {
		name = "there"
	}

	body := fmt.Sprintf("Hello %s,\n\n%s\n\nSlot: %s to %s\n\n%s",
		name, intro, slot.StartTime, slot.EndTime, n.clinicName)

	return n.sender.Send(ctx, EmailMessage{
		To:      toEmail,
		ToName:  patientName,
		Subject: subject,
		Body:    body,
	})
}
