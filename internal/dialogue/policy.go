// Package dialogue decides, each turn, what the receptionist says next and
// which structured action the dispatcher should carry out. Two strategies
// implement the same contract: a remote LLM policy and a deterministic
// rule chain, composed so the rules absorb every remote failure.
package dialogue

import (
	"context"

	"github.com/raaslabs/raas-platform/internal/session"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

// Policy produces one Decision per user turn.
type Policy interface {
	Decide(ctx context.Context, sess *session.Session, channel, messageText string) (Decision, error)
}

// Chain tries the remote policy first and falls back to the rule policy on
// any failure. Decide never returns an error: the rule policy always
// produces a decision.
type Chain struct {
	remote Policy
	rules  *RulePolicy
	logger *logging.Logger
}

// NewChain builds a policy chain. remote may be nil, in which case every
// turn is decided by the rules.
func NewChain(remote Policy, rules *RulePolicy, logger *logging.Logger) *Chain {
	if rules == nil {
		rules = NewRulePolicy()
	}
	if logger == nil {
		logger = logging.New("info")
	}
	return &Chain{remote: remote, rules: rules, logger: logger}
}

// HasRemote reports whether a remote strategy is configured.
func (c *Chain) HasRemote() bool {
	return c.remote != nil
}

func (c *Chain) Decide(ctx context.Context, sess *session.Session, channel, messageText string) (Decision, error) {
	if c.remote != nil {
		decision, err := c.remote.Decide(ctx, sess, channel, messageText)
		if err == nil {
			return decision, nil
		}
		c.logger.Warn("remote policy failed, using rule fallback", "error", err)
	}

	return c.rules.Decide(ctx, sess, channel, messageText)
}
