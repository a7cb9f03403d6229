package session

import (
	"context"
	"errors"
)

// Sentinel errors for store operations, checkable with errors.Is().
var (
	// ErrInvalidTurn indicates a turn with no role, which only happens
	// when a Turn is built outside the role constructors.
	ErrInvalidTurn = errors.New("session: turn has no role")

	// ErrEmptyConversationID indicates a blank conversation id.
	ErrEmptyConversationID = errors.New("session: empty conversation id")
)

// Store is the persistence contract for conversation sessions.
//
// Unknown conversation ids are not errors: History returns an empty
// slice and ActiveEntity returns "". Sessions come into existence on
// the first Append or SetActiveEntity for their id.
type Store interface {
	// History returns the turns of a conversation in append order.
	History(ctx context.Context, conversationID string) ([]Turn, error)

	// Append adds one turn, creating the session if absent. The store
	// keeps only the most recent turns up to its history cap, evicting
	// oldest first.
	Append(ctx context.Context, conversationID string, turn Turn) error

	// ActiveEntity returns the conversation's active entity key, or ""
	// when none is set.
	ActiveEntity(ctx context.Context, conversationID string) (string, error)

	// SetActiveEntity records the active entity key. An empty key
	// clears it.
	SetActiveEntity(ctx context.Context, conversationID, key string) error

	// Clear removes the conversation and its turns.
	Clear(ctx context.Context, conversationID string) error
}
