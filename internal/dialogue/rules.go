package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/raaslabs/raas-platform/internal/session"
)

// RulePolicy is the deterministic fallback strategy. It re-evaluates a
// fixed precedence chain each turn against the session state overlaid with
// whatever entities the current utterance yields.
type RulePolicy struct{}

func NewRulePolicy() *RulePolicy {
	return &RulePolicy{}
}

// Decide never fails; timing out here is impossible and every branch
// produces a usable reply.
func (p *RulePolicy) Decide(_ context.Context, sess *session.Session, _ string, messageText string) (Decision, error) {
	messageText = strings.TrimSpace(messageText)
	extracted := extractEntities(messageText)

	proposed := proposedState{
		name:       sess.Patient.Name,
		phone:      sess.Patient.Phone,
		email:      sess.Patient.Email,
		date:       sess.Preferences.Date,
		timeWindow: sess.Preferences.TimeWindow,
	}
	proposed.overlay(extracted)

	// A pending date error means the stored date was discarded; only a
	// freshly supplied date clears the prompt.
	if sess.Metadata.PreferredDateError != "" && proposed.date == "" {
		reply := "I need the appointment date in YYYY-MM-DD format, including the year. Could you share it again?"
		if sess.Metadata.PreferredDateError == session.DateErrPastDate {
			reply = "That date has already passed. Please share a future date in YYYY-MM-DD format."
		}
		return Decision{
			ReplyToUser: reply,
			Action:      Action{Type: ActionCollectInfo, MissingFields: []string{"preferred_date"}},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	if sess.Metadata.BookingError == session.BookingErrMissingEmail || proposed.email == "" {
		return Decision{
			ReplyToUser: "I need an email address to confirm your appointment. Could you please share it?",
			Action:      Action{Type: ActionCollectInfo, MissingFields: []string{"patient_email"}},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	if selection := extractSlotSelection(messageText); selection >= 0 && len(sess.AvailableSlots) > 0 {
		index := selection
		if index > len(sess.AvailableSlots)-1 {
			index = len(sess.AvailableSlots) - 1
		}
		return Decision{
			ReplyToUser: "Okay, sending your request to clinic. You'll be notified when doctor confirms.",
			Action:      Action{Type: ActionBookSlot, SlotIndex: &index},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	if len(sess.AvailableSlots) > 0 && !sess.Metadata.SlotsPresented {
		lines := make([]string, 0, 5)
		for i, slot := range sess.AvailableSlots {
			if i == 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("%d) %s", i+1, slot.StartTime))
		}
		sess.Metadata.SlotsPresented = true
		return Decision{
			ReplyToUser: "I found these options: " + strings.Join(lines, "; ") + ". Reply with the option number.",
			Action:      Action{Type: ActionAwaitSlotSelection},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	var missing []string
	if proposed.name == "" {
		missing = append(missing, "patient_name")
	}
	if proposed.phone == "" {
		missing = append(missing, "patient_phone")
	}
	if len(missing) > 0 {
		return Decision{
			ReplyToUser: "Sure, may I have your " + strings.Join(missing, " and ") + "?",
			Action:      Action{Type: ActionCollectInfo, MissingFields: missing},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	if proposed.date == "" || proposed.timeWindow == "" {
		return Decision{
			ReplyToUser: "Thanks. Could you share your preferred date (YYYY-MM-DD) and time window?",
			Action:      Action{Type: ActionCollectInfo, MissingFields: []string{"preferred_date", "preferred_time_window"}},
			Extracted:   extracted,
			Source:      DecisionSourceRules,
		}, nil
	}

	return Decision{
		ReplyToUser: fmt.Sprintf("Thanks. I will check available slots for %s in the %s.", proposed.date, proposed.timeWindow),
		Action:      Action{Type: ActionCheckAvailability},
		Extracted:   extracted,
		Source:      DecisionSourceRules,
	}, nil
}

type proposedState struct {
	name       string
	phone      string
	email      string
	date       string
	timeWindow string
}

func (p *proposedState) overlay(extracted map[string]any) {
	if v, ok := extracted["patient_name"].(string); ok && v != "" {
		p.name = v
	}
	if v, ok := extracted["patient_phone"].(string); ok && v != "" {
		p.phone = v
	}
	if v, ok := extracted["patient_email"].(string); ok && v != "" {
		p.email = v
	}
	if v, ok := extracted["preferred_date"].(string); ok && v != "" {
		p.date = v
	}
	if v, ok := extracted["preferred_time_window"].(string); ok && v != "" {
		p.timeWindow = v
	}
}
