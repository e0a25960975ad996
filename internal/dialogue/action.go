package dialogue

// ActionType enumerates the structured directives a policy may emit.
type ActionType string

const (
	ActionCollectInfo        ActionType = "COLLECT_INFO"
	ActionCheckAvailability  ActionType = "CHECK_AVAILABILITY"
	ActionAwaitSlotSelection ActionType = "AWAIT_SLOT_SELECTION"
	ActionBookSlot           ActionType = "BOOK_SLOT"
	ActionRequestReschedule  ActionType = "REQUEST_RESCHEDULE"
	ActionCancelBooking      ActionType = "CANCEL_BOOKING"
	ActionConfirmationPrompt ActionType = "CONFIRMATION_PROMPT"
	ActionSessionComplete    ActionType = "SESSION_COMPLETE"
	ActionSmallTalk          ActionType = "SMALL_TALK"
	ActionConnectStaff       ActionType = "CONNECT_STAFF"
)

var allowedActionTypes = map[ActionType]struct{}{
	ActionCollectInfo:        {},
	ActionCheckAvailability:  {},
	ActionAwaitSlotSelection: {},
	ActionBookSlot:           {},
	ActionRequestReschedule:  {},
	ActionCancelBooking:      {},
	ActionConfirmationPrompt: {},
	ActionSessionComplete:    {},
	ActionSmallTalk:          {},
	ActionConnectStaff:       {},
}

// Valid reports whether t is one of the allowed action types.
func (t ActionType) Valid() bool {
	_, ok := allowedActionTypes[t]
	return ok
}

// Action is the structured directive attached to each policy decision.
// The payload fields are only meaningful for specific types: missing_fields
// for COLLECT_INFO, slot_index/slot_id for BOOK_SLOT, notes for CONNECT_STAFF.
type Action struct {
	Type          ActionType `json:"type"`
	MissingFields []string   `json:"missing_fields"`
	SlotIndex     *int       `json:"slot_index"`
	SlotID        string     `json:"slot_id"`
	Notes         string     `json:"notes"`
}

// Decision is the per-turn result contract produced by every policy.
type Decision struct {
	ReplyToUser string
	Action      Action
	Extracted   map[string]any

	// Source records which strategy produced the decision, "remote" or
	// "rules". It is diagnostic only and never persisted.
	Source string
}

const (
	DecisionSourceRemote = "remote"
	DecisionSourceRules  = "rules"
)
