package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/salmanfarse/folio/internal/log"
)

// DB is the subset of pgxpool.Pool the store needs. Defined here, by
// the consumer, so tests can substitute a fake without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable Store implementation. One row per
// session plus one row per turn; turns past the history cap are pruned
// on every append so reads never fetch more than maxHistory rows.
//
// Safe for concurrent use; all state lives in PostgreSQL.
type PostgresStore struct {
	db         DB
	maxHistory int
	ttl        time.Duration
	logger     log.Logger
}

// NewPostgresStore creates a Postgres-backed session store.
// maxHistory <= 0 and ttl <= 0 fall back to the package defaults.
func NewPostgresStore(db DB, maxHistory int, ttl time.Duration, logger log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.NewNop()
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{
		db:         db,
		maxHistory: maxHistory,
		ttl:        ttl,
		logger:     logger.With("component", "session_postgres"),
	}
}

// History implements Store.
func (s *PostgresStore) History(ctx context.Context, conversationID string) ([]Turn, error) {
	if conversationID == "" {
		return nil, ErrEmptyConversationID
	}

	rows, err := s.db.Query(ctx, `
		SELECT role, content, tool_name, tool_call_id, tool_calls, created_at
		FROM session_turns
		WHERE conversation_id = $1
		ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t         Turn
			toolCalls []byte
		)
		if err := rows.Scan(&t.Role, &t.Content, &t.ToolName, &t.ToolCallID, &toolCalls, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan session turn: %w", err)
		}
		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &t.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session turns: %w", err)
	}
	return turns, nil
}

// Append implements Store. The session row is upserted, the turn
// inserted, then rows beyond the history cap are pruned oldest-first.
func (s *PostgresStore) Append(ctx context.Context, conversationID string, turn Turn) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}
	if turn.Role == "" {
		return ErrInvalidTurn
	}

	if err := s.touch(ctx, conversationID); err != nil {
		return err
	}

	var toolCalls []byte
	if len(turn.ToolCalls) > 0 {
		var err error
		toolCalls, err = json.Marshal(turn.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO session_turns (conversation_id, role, content, tool_name, tool_call_id, tool_calls, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		conversationID, string(turn.Role), Truncate(turn.Content), turn.ToolName, turn.ToolCallID, toolCalls, ts,
	)
	if err != nil {
		return fmt.Errorf("insert session turn: %w", err)
	}

	// Sliding window: drop everything older than the newest maxHistory rows.
	_, err = s.db.Exec(ctx, `
		DELETE FROM session_turns
		WHERE conversation_id = $1
		  AND id NOT IN (
			SELECT id FROM session_turns
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		  )`,
		conversationID, s.maxHistory,
	)
	if err != nil {
		return fmt.Errorf("prune session turns: %w", err)
	}
	return nil
}

// ActiveEntity implements Store.
func (s *PostgresStore) ActiveEntity(ctx context.Context, conversationID string) (string, error) {
	if conversationID == "" {
		return "", ErrEmptyConversationID
	}

	var key string
	err := s.db.QueryRow(ctx,
		`SELECT active_entity FROM sessions WHERE conversation_id = $1`,
		conversationID,
	).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query active entity: %w", err)
	}
	return key, nil
}

// SetActiveEntity implements Store.
func (s *PostgresStore) SetActiveEntity(ctx context.Context, conversationID, key string) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (conversation_id, active_entity, last_accessed)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET active_entity = EXCLUDED.active_entity, last_accessed = now()`,
		conversationID, key,
	)
	if err != nil {
		return fmt.Errorf("set active entity: %w", err)
	}
	return nil
}

// Clear implements Store. Turn rows go with the session via CASCADE.
func (s *PostgresStore) Clear(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}

	_, err := s.db.Exec(ctx,
		`DELETE FROM sessions WHERE conversation_id = $1`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SweepIdle removes sessions idle longer than the store's TTL. The
// serve loop calls this on a ticker; removal is cleanup, not a
// correctness requirement.
func (s *PostgresStore) SweepIdle(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM sessions WHERE last_accessed < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(s.ttl.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep idle sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Debug("swept idle sessions", "removed", n)
		return n, nil
	}
	return 0, nil
}

// touch upserts the session row and refreshes its idle clock.
func (s *PostgresStore) touch(ctx context.Context, conversationID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (conversation_id, last_accessed)
		VALUES ($1, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET last_accessed = now()`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}
