package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/raaslabs/raas-platform/pkg/logging"
)

const sessionKeyPrefix = "raas:session:"

// DefaultTTL is the session expiry refreshed on every save; it is the sole
// cleanup mechanism for abandoned conversations.
const DefaultTTL = time.Hour

// Store persists sessions in Redis with a fixed TTL.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

// NewStore creates a session store. A non-positive ttl falls back to DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration, logger *logging.Logger) *Store {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("raas.internal.session"),
		logger: logger,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Load fetches the session for id, returning a fresh default session when the
// key is absent, the payload fails decoding, or the stored session is
// terminal. Terminal sessions are deleted so a closed conversation can never
// be resumed under the same id. Load never fails the caller: store errors
// degrade to a fresh session.
func (s *Store) Load(ctx context.Context, id string) *Session {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.RecordError(err)
			s.logger.Warn("session fetch failed; starting fresh", "session_id", id, "error", err)
		}
		return New()
	}

	sess := New()
	if err := json.Unmarshal(data, sess); err != nil {
		span.RecordError(err)
		s.logger.Warn("session payload invalid; resetting", "session_id", id, "error", err)
		return New()
	}

	if sess.IsTerminal() {
		s.logger.Debug("session is terminal; resetting", "session_id", id, "status", sess.Status)
		if err := s.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete terminal session", "session_id", id, "error", err)
		}
		return New()
	}

	return sess
}

// Save persists the session with the store TTL, refreshing it on every write.
func (s *Store) Save(ctx context.Context, id string, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

// Delete removes the session for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete session: %w", err)
	}
	return nil
}
