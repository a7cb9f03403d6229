// Package chat is the conversational orchestrator: it resolves which
// project a conversation is about, assembles the model prompt from
// retrieved context and history, runs the bounded tool-calling loop,
// and hands a token stream back to the transport layer.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/salmanfarse/folio/internal/catalog"
	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/session"
)

// pronounCues are the referential phrases that make a message depend
// on conversational context. Surrounding spaces keep "it" from
// matching inside words like "github".
var pronounCues = []string{" it ", " this ", " that ", " the project ", " the app ", " the repo "}

// Resolution is the outcome of resolving one message against the
// session state. Entity is the catalog key of the project under
// discussion, empty when none. Ambiguous means the message used a
// pronoun with nothing to refer to and the caller must ask the user
// to clarify instead of guessing.
type Resolution struct {
	Entity    string
	Ambiguous bool
}

// Resolver decides which tracked entity each incoming message
// concerns. Explicit mentions always win and are persisted; inferred
// continuity never overwrites stored state.
type Resolver struct {
	store   session.Store
	catalog *catalog.Catalog
	logger  log.Logger
}

// NewResolver creates a Resolver over the given session store and
// entity catalog.
func NewResolver(store session.Store, cat *catalog.Catalog, logger log.Logger) *Resolver {
	return &Resolver{
		store:   store,
		catalog: cat,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve applies the precedence order: explicit mention, then
// pronoun cue backed by a stored entity, then stored entity as-is.
// A pronoun with no stored entity is ambiguous.
func (r *Resolver) Resolve(ctx context.Context, conversationID, message string) (Resolution, error) {
	if entity, ok := r.catalog.Match(message); ok {
		if err := r.store.SetActiveEntity(ctx, conversationID, entity.Key); err != nil {
			return Resolution{}, fmt.Errorf("persisting active entity: %w", err)
		}
		r.logger.Debug("explicit entity mention",
			"conversation_id", conversationID,
			"entity", entity.Key)
		return Resolution{Entity: entity.Key}, nil
	}

	stored, err := r.store.ActiveEntity(ctx, conversationID)
	if err != nil {
		return Resolution{}, fmt.Errorf("reading active entity: %w", err)
	}

	lower := strings.ToLower(message)
	hasPronoun := false
	for _, cue := range pronounCues {
		if strings.Contains(lower, cue) {
			hasPronoun = true
			break
		}
	}

	if hasPronoun && stored == "" {
		r.logger.Debug("ambiguous reference", "conversation_id", conversationID)
		return Resolution{Ambiguous: true}, nil
	}
	return Resolution{Entity: stored}, nil
}
