// Package conversation orchestrates a single receptionist turn: load the
// session, decide a reply and action, dispatch the action against the
// calendar, and persist the updated state.
package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/raaslabs/raas-platform/internal/dialogue"
)

// TurnRequest is one inbound user utterance from a channel adapter.
type TurnRequest struct {
	SessionID   string `json:"session_id"`
	Channel     string `json:"channel"`
	UserID      string `json:"user_id"`
	MessageText string `json:"message_text"`
}

// TurnResponse is the contract consumed by channel adapters.
type TurnResponse struct {
	SessionID   string          `json:"session_id"`
	ReplyToUser string          `json:"reply_to_user"`
	Action      dialogue.Action `json:"action"`
}

// Service processes conversation turns.
type Service interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
}

// Validate rejects requests that are not routable to a session.
func (r TurnRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return errors.New("conversation: session_id is required")
	}
	if strings.TrimSpace(r.Channel) == "" {
		return errors.New("conversation: channel is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("conversation: user_id is required")
	}
	return nil
}
