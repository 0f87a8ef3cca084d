// Package engine is the dialogue core: it resolves a message to an
// intent, dispatches to the matching task operation, renders a reply,
// and appends the exchange to the conversation log. The engine never
// fails a conversation. Missing parameters become clarifying prompts,
// store-level validation failures become plain-language replies, and
// capability failures land on their documented fallbacks.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"taskpilot/internal/capability"
	"taskpilot/internal/conversation"
	"taskpilot/internal/intent"
	"taskpilot/internal/task"
)

// Resolver yields the structured intent behind a raw message.
type Resolver interface {
	Resolve(ctx context.Context, message string) intent.Intent
}

// Capabilities bundles the external services the engine consumes. Nil
// entries behave like disabled capabilities.
type Capabilities struct {
	Generator capability.Generator
	Embedder  capability.Embedder
	Index     capability.VectorIndex
	Tracer    capability.Tracer
	Options   capability.GenerateOptions
}

// Engine orchestrates one assistant instance.
type Engine struct {
	store    *task.Store
	log      *conversation.Log
	resolver Resolver
	caps     Capabilities
	logger   zerolog.Logger

	now func() time.Time
}

// NewEngine wires an engine around its store, log, and resolver.
func NewEngine(store *task.Store, log *conversation.Log, resolver Resolver, caps Capabilities, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		log:      log,
		resolver: resolver,
		caps:     caps,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one user message and returns the logged exchange.
// The entry's AgentResponse is the rendered reply and its CreatedAt is
// the conversation timestamp. Handle has no error return on purpose:
// everything short of a storage failure is rendered as conversational
// text, and durability is the caller's concern.
func (e *Engine) Handle(ctx context.Context, message string, meta map[string]any) conversation.Entry {
	ctx, finish := e.startSpan(ctx, "engine.handle", map[string]any{"message_len": len(message)})
	defer finish(nil)

	in := e.resolver.Resolve(ctx, message)
	e.logger.Debug().Str("intent", string(in.Type)).Msg("resolved intent")

	response := e.respond(ctx, in)
	return e.log.Append(message, response, meta)
}

func (e *Engine) respond(ctx context.Context, in intent.Intent) string {
	switch in.Type {
	case intent.TypeCreateTask:
		return e.createTask(ctx, in)
	case intent.TypeListTasks:
		return e.listTasks(in)
	case intent.TypeUpdateTask:
		return e.updateTask(in)
	case intent.TypeCompleteTask:
		return e.completeTask(in)
	case intent.TypeDeleteTask:
		return e.deleteTask(ctx, in)
	case intent.TypeScheduleTasks:
		return e.scheduleTasks()
	case intent.TypeAnalyzeProductivity:
		return e.analyzeProductivity()
	case intent.TypeGetSuggestions:
		return e.suggest(ctx)
	default:
		return helpText
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(error)) {
	if e.caps.Tracer == nil {
		return ctx, func(error) {}
	}
	return e.caps.Tracer.StartSpan(ctx, name, attrs)
}
