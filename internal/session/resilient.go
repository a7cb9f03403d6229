package session

import (
	"context"

	"github.com/salmanfarse/folio/internal/log"
)

// Resilient wraps a durable primary store with an in-process fallback
// so a transient storage outage never hard-fails a request.
//
// Writes are mirrored into the fallback on every call, which keeps it
// warm; the fallback's own TTL and history cap bound its memory.
// History reads reconcile both stores: turns written while the primary
// was down exist only in the fallback, so the store holding more turns
// wins. Other reads go to the primary and drop to the fallback only
// when the primary errors.
type Resilient struct {
	primary  Store
	fallback Store
	logger   log.Logger
}

// NewResilient wraps primary with fallback. Both must be non-nil.
func NewResilient(primary, fallback Store, logger log.Logger) *Resilient {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resilient{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "session_resilient"),
	}
}

// History implements Store. Turns appended during a primary outage
// land only in the fallback, so a primary that recovered mid
// conversation returns a shorter history than the fallback holds. The
// mirror-on-write contract makes the longer of the two the complete
// one.
func (r *Resilient) History(ctx context.Context, conversationID string) ([]Turn, error) {
	turns, err := r.primary.History(ctx, conversationID)
	if err != nil {
		r.logger.Warn("primary session store read failed, using fallback",
			"conversation_id", conversationID,
			"error", err,
		)
		return r.fallback.History(ctx, conversationID)
	}

	fbTurns, fbErr := r.fallback.History(ctx, conversationID)
	if fbErr == nil && len(fbTurns) > len(turns) {
		r.logger.Warn("fallback session store holds turns missing from primary",
			"conversation_id", conversationID,
			"primary_turns", len(turns),
			"fallback_turns", len(fbTurns),
		)
		return fbTurns, nil
	}
	return turns, nil
}

// Append implements Store. The turn is always mirrored into the
// fallback; a primary failure is degradation, not a request failure.
func (r *Resilient) Append(ctx context.Context, conversationID string, turn Turn) error {
	fbErr := r.fallback.Append(ctx, conversationID, turn)

	if err := r.primary.Append(ctx, conversationID, turn); err != nil {
		r.logger.Warn("primary session store write failed, fallback holds the turn",
			"conversation_id", conversationID,
			"role", turn.Role,
			"error", err,
		)
		return fbErr
	}
	return nil
}

// ActiveEntity implements Store.
func (r *Resilient) ActiveEntity(ctx context.Context, conversationID string) (string, error) {
	key, err := r.primary.ActiveEntity(ctx, conversationID)
	if err == nil {
		return key, nil
	}
	r.logger.Warn("primary session store read failed, using fallback",
		"conversation_id", conversationID,
		"error", err,
	)
	return r.fallback.ActiveEntity(ctx, conversationID)
}

// SetActiveEntity implements Store.
func (r *Resilient) SetActiveEntity(ctx context.Context, conversationID, key string) error {
	fbErr := r.fallback.SetActiveEntity(ctx, conversationID, key)

	if err := r.primary.SetActiveEntity(ctx, conversationID, key); err != nil {
		r.logger.Warn("primary session store write failed, fallback holds the entity",
			"conversation_id", conversationID,
			"entity", key,
			"error", err,
		)
		return fbErr
	}
	return nil
}

// Clear implements Store. Both stores are cleared; the primary error
// wins since a lingering durable session matters more than a lingering
// cached one.
func (r *Resilient) Clear(ctx context.Context, conversationID string) error {
	if err := r.fallback.Clear(ctx, conversationID); err != nil {
		r.logger.Warn("fallback session store clear failed",
			"conversation_id", conversationID,
			"error", err,
		)
	}
	return r.primary.Clear(ctx, conversationID)
}

// Compile-time interface checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*Resilient)(nil)
)
