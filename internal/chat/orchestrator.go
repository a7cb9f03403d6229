package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/salmanfarse/folio/internal/log"
	"github.com/salmanfarse/folio/internal/model"
	"github.com/salmanfarse/folio/internal/retrieval"
	"github.com/salmanfarse/folio/internal/session"
)

// ErrEmptyMessage indicates the request carried no message text.
var ErrEmptyMessage = errors.New("message is required")

// clarificationText is returned instead of a model answer when the
// user's reference cannot be resolved. Guessing the wrong project
// here damages trust more than asking does.
const clarificationText = "Which project are you asking about? I track several, so a name helps me answer precisely."

// Request is one inbound chat request after transport decoding.
type Request struct {
	ConversationID string
	Message        string
	RepoFilter     string
	Mode           Mode
}

// Reply is the orchestrator's answer. When Clarification is set the
// request was ambiguous and Stream is nil; otherwise Stream carries
// the model's answer tokens and the caller owns closing it. Citations
// and ToolsInvoked are known before the stream starts.
type Reply struct {
	ConversationID string
	Citations      []retrieval.Citation
	ToolsInvoked   []string
	Clarification  string
	Stream         model.TokenStream
}

// Config carries the orchestrator's collaborators.
type Config struct {
	Store     session.Store
	Resolver  *Resolver
	Retriever *retrieval.Retriever
	Prompts   *PromptBuilder
	Loop      *ToolLoop
	Client    model.Client
	Logger    log.Logger
}

func (cfg Config) validate() error {
	switch {
	case cfg.Store == nil:
		return errors.New("session store is required")
	case cfg.Resolver == nil:
		return errors.New("resolver is required")
	case cfg.Retriever == nil:
		return errors.New("retriever is required")
	case cfg.Prompts == nil:
		return errors.New("prompt builder is required")
	case cfg.Loop == nil:
		return errors.New("tool loop is required")
	case cfg.Client == nil:
		return errors.New("model client is required")
	case cfg.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}

// Orchestrator runs one end-to-end chat turn: persist the user turn,
// resolve the entity under discussion, retrieve supporting context,
// run the tool loop, and open the answer stream.
type Orchestrator struct {
	store     session.Store
	resolver  *Resolver
	retriever *retrieval.Retriever
	prompts   *PromptBuilder
	loop      *ToolLoop
	client    model.Client
	logger    log.Logger
}

// New creates an Orchestrator from its collaborators.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		store:     cfg.Store,
		resolver:  cfg.Resolver,
		retriever: cfg.Retriever,
		prompts:   cfg.Prompts,
		loop:      cfg.Loop,
		client:    cfg.Client,
		logger:    cfg.Logger.With("component", "orchestrator"),
	}, nil
}

// Chat executes one request. Degradable failures (retrieval, tools)
// have already been absorbed by their components; errors returned
// here are fatal for the request (validation, storage outage with no
// fallback, model unreachable).
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if err := o.store.Append(ctx, conversationID, session.NewUserTurn(req.Message)); err != nil {
		return nil, fmt.Errorf("persisting user turn: %w", err)
	}

	resolution, err := o.resolver.Resolve(ctx, conversationID, req.Message)
	if err != nil {
		return nil, err
	}
	if resolution.Ambiguous {
		if err := o.store.Append(ctx, conversationID, session.NewAssistantTurn(clarificationText)); err != nil {
			o.logger.Warn("persisting clarification turn", "error", err)
		}
		return &Reply{ConversationID: conversationID, Clarification: clarificationText}, nil
	}

	filter := req.RepoFilter
	if filter == "" {
		filter = resolution.Entity
	}
	chunks := o.retriever.Retrieve(ctx, req.Message, retrieval.WithEntityFilter(filter))

	history, err := o.store.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	system := o.prompts.System(req.Mode, resolution.Entity)
	messages := BuildMessages(system, retrieval.ContextBlock(chunks), history)

	result, err := o.loop.Run(ctx, messages)
	if err != nil {
		// The sizes travel with the error so a failing prompt can be
		// diagnosed from the error alone.
		return nil, fmt.Errorf("answering (history=%d, context_chunks=%d, system_chars=%d): %w",
			len(history), len(chunks), len(system), err)
	}

	// Tool activity is part of the conversation: the paired
	// assistant(tool_call) and tool(result) turns are folded into the
	// stored history so follow-up questions keep the context the
	// answer was based on. Best effort, like the answer turn itself.
	for _, turn := range result.Turns {
		if err := o.store.Append(ctx, conversationID, turn); err != nil {
			o.logger.Warn("persisting tool turn", "role", turn.Role, "error", err)
		}
	}

	// An answer produced inside the loop is replayed through the same
	// streaming path. When the loop hit its bound instead, the final
	// answer comes from a streaming call on the finalized message
	// list; that call carries no tool catalog, so no further tool use
	// is possible.
	var stream model.TokenStream
	if result.FinalText != "" {
		stream = model.NewTextStream(result.FinalText)
	} else {
		stream, err = o.client.Stream(ctx, result.Messages)
		if err != nil {
			return nil, fmt.Errorf("opening answer stream (messages=%d, history=%d, context_chunks=%d): %w",
				len(result.Messages), len(history), len(chunks), err)
		}
	}

	o.logger.Info("chat turn orchestrated",
		"conversation_id", conversationID,
		"entity", resolution.Entity,
		"citations", len(chunks),
		"tools_invoked", len(result.ToolsInvoked),
		"history_len", len(history))

	return &Reply{
		ConversationID: conversationID,
		Citations:      retrieval.Citations(chunks),
		ToolsInvoked:   result.ToolsInvoked,
		Stream:         stream,
	}, nil
}
