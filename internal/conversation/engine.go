package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/raaslabs/raas-platform/internal/calendar"
	"github.com/raaslabs/raas-platform/internal/dialogue"
	"github.com/raaslabs/raas-platform/internal/session"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

// AppointmentArchive persists booked appointments for clinic records. A nil
// archive disables archival without changing turn behavior.
type AppointmentArchive interface {
	EnsurePatient(ctx context.Context, patient session.Patient) (int64, error)
	RecordAppointment(ctx context.Context, patientID int64, dentistID string, slot calendar.Slot, booking *calendar.Booking) error
}

// Notifier delivers booking notices to the patient. Nil disables delivery.
type Notifier interface {
	SendBookingNotice(ctx context.Context, toEmail, patientName string, slot calendar.Slot, bookingStatus string) error
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Store     *session.Store
	Policy    *dialogue.Chain
	Scheduler calendar.Scheduler

	// Optional collaborators.
	Archive  AppointmentArchive
	Notifier Notifier
	Metrics  *TurnMetrics
	Logger   *logging.Logger

	// DefaultDentistID fills availability requests when the patient has not
	// asked for a specific dentist.
	DefaultDentistID string
}

// Engine implements Service. One call to ProcessTurn runs a full turn to
// completion; no state is shared across session ids.
type Engine struct {
	store     *session.Store
	policy    *dialogue.Chain
	scheduler calendar.Scheduler
	archive   AppointmentArchive
	notifier  Notifier
	metrics   *TurnMetrics
	logger    *logging.Logger
	dentistID string
	now       func() time.Time
}

var _ Service = (*Engine)(nil)

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("conversation: session store cannot be nil")
	}
	if cfg.Policy == nil {
		panic("conversation: policy chain cannot be nil")
	}
	if cfg.Scheduler == nil {
		panic("conversation: scheduler cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("info")
	}
	return &Engine{
		store:     cfg.Store,
		policy:    cfg.Policy,
		scheduler: cfg.Scheduler,
		archive:   cfg.Archive,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		logger:    logger,
		dentistID: cfg.DefaultDentistID,
		now:       time.Now,
	}
}

// ProcessTurn runs one user utterance through the session, the dialogue
// policy, and the action dispatcher. Collaborator failures degrade into
// metadata flags; the only error returned is a validation failure.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sess := e.store.Load(ctx, req.SessionID)
	sess.AppendHistory(session.RoleUser, req.MessageText)

	decision, err := e.policy.Decide(ctx, sess, req.Channel, req.MessageText)
	if err != nil {
		// The chain absorbs remote failures; treat this as a hard bug.
		return nil, fmt.Errorf("conversation: policy decision: %w", err)
	}
	if decision.Source == dialogue.DecisionSourceRules && e.policy.HasRemote() {
		e.metrics.ObservePolicyFallback()
	}

	sess.MergeExtracted(decision.Extracted, e.now())
	sess.AppendHistory(session.RoleAssistant, decision.ReplyToUser)
	sess.Metadata.LastAction = string(decision.Action.Type)
	sess.AdvanceForAction(string(decision.Action.Type))

	e.dispatch(ctx, sess, decision.Action)

	if err := e.store.Save(ctx, req.SessionID, sess); err != nil {
		e.logger.Error("session save failed", "session_id", req.SessionID, "error", err)
	}

	e.metrics.ObserveTurn(string(decision.Action.Type), decision.Source)
	e.logger.Debug("turn processed",
		"session_id", req.SessionID,
		"channel", req.Channel,
		"action", decision.Action.Type,
		"status", sess.Status,
	)

	return &TurnResponse{
		SessionID:   req.SessionID,
		ReplyToUser: decision.ReplyToUser,
		Action:      decision.Action,
	}, nil
}
