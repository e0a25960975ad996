package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raaslabs/raas-platform/internal/session"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

const (
	contextHistoryTurns = 5
	contextSlotLimit    = 5

	defaultRemoteTimeout = 15 * time.Second
)

// RemotePolicy delegates the per-turn decision to an LLM collaborator. The
// model is instructed to answer with a single JSON decision object; anything
// else is reported as an error so the caller can fall back.
type RemotePolicy struct {
	client  LLMClient
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

func NewRemotePolicy(client LLMClient, model string, timeout time.Duration, logger *logging.Logger) *RemotePolicy {
	if client == nil {
		panic("dialogue: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	if logger == nil {
		logger = logging.New("info")
	}
	return &RemotePolicy{client: client, model: model, timeout: timeout, logger: logger}
}

func (p *RemotePolicy) Decide(ctx context.Context, sess *session.Session, channel, messageText string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := p.buildUserPayload(sess, channel, messageText)
	if err != nil {
		return Decision{}, fmt.Errorf("dialogue: render context: %w", err)
	}

	resp, err := p.client.Complete(ctx, LLMRequest{
		Model:       p.model,
		System:      []string{systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: payload}},
		MaxTokens:   1024,
		Temperature: 0.1,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("dialogue: llm completion: %w", err)
	}

	decision, err := parseDecision(resp.Text)
	if err != nil {
		p.logger.Debug("llm output rejected", "error", err, "raw", truncate(resp.Text, 500))
		return Decision{}, err
	}
	decision.Source = DecisionSourceRemote
	return decision, nil
}

func (p *RemotePolicy) buildUserPayload(sess *session.Session, channel, messageText string) (string, error) {
	slots := sess.AvailableSlots
	if len(slots) > contextSlotLimit {
		slots = slots[:contextSlotLimit]
	}

	contextJSON, err := json.Marshal(map[string]any{
		"channel":         channel,
		"patient":         sess.Patient,
		"preferences":     sess.Preferences,
		"available_slots": slots,
		"metadata":        sess.Metadata,
	})
	if err != nil {
		return "", err
	}

	history := "<no history>"
	if recent := sess.RecentHistory(contextHistoryTurns); len(recent) > 0 {
		lines := make([]string, 0, len(recent))
		for _, turn := range recent {
			lines = append(lines, turn.Role+": "+turn.Content)
		}
		history = strings.Join(lines, "\n")
	}

	sections := []string{
		"Conversation context (JSON):\n" + string(contextJSON) + "\n\nRecent dialogue:\n" + history + "\n\nLatest user message:",
		contactRequirements,
		dateHandlingGuidance,
		allowedActionsText,
		jsonResponseExample,
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n") + "\n" + messageText), nil
}

// parseDecision coerces raw model output into a Decision. Markdown fences
// and surrounding prose are tolerated as long as one JSON object is present.
func parseDecision(raw string) (Decision, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	jsonText := raw
	if !strings.HasPrefix(jsonText, "{") {
		start := strings.Index(jsonText, "{")
		end := strings.LastIndex(jsonText, "}")
		if start >= 0 && end > start {
			jsonText = jsonText[start : end+1]
		}
	}

	var wire struct {
		ReplyToUser string `json:"reply_to_user"`
		Action      struct {
			Type          string   `json:"type"`
			MissingFields []string `json:"missing_fields"`
			SlotIndex     *int     `json:"slot_index"`
			SlotID        string   `json:"slot_id"`
			Notes         string   `json:"notes"`
			Explain       string   `json:"explain"`
		} `json:"action"`
		Extracted map[string]any `json:"extracted"`
	}
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return Decision{}, fmt.Errorf("dialogue: decision parse: %w", err)
	}

	actionType := ActionType(strings.TrimSpace(wire.Action.Type))
	if !actionType.Valid() {
		return Decision{}, fmt.Errorf("dialogue: unsupported action type %q", wire.Action.Type)
	}
	if strings.TrimSpace(wire.ReplyToUser) == "" {
		return Decision{}, errors.New("dialogue: decision has empty reply")
	}

	notes := wire.Action.Notes
	if notes == "" {
		notes = wire.Action.Explain
	}

	extracted := wire.Extracted
	if extracted == nil {
		extracted = map[string]any{}
	}

	return Decision{
		ReplyToUser: wire.ReplyToUser,
		Action: Action{
			Type:          actionType,
			MissingFields: wire.Action.MissingFields,
			SlotIndex:     wire.Action.SlotIndex,
			SlotID:        wire.Action.SlotID,
			Notes:         notes,
		},
		Extracted: extracted,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
