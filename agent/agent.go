// Package agent implements the conversation core: safety guard, routing,
// domain handlers and reply assembly. Language understanding, directory
// data, the drug index and session history are injected collaborators; the
// core owns the pipeline and its policy literals only.
package agent

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/directory"
	"github.com/farmachile/medagent/drugindex"
	"github.com/farmachile/medagent/extract"
	"github.com/farmachile/medagent/nlu"
	"github.com/farmachile/medagent/session"
	"github.com/farmachile/medagent/types"
)

// Capabilities are the consumed language-understanding contracts. A nil
// capability means the stage runs on its local heuristic alone (no-LLM
// mode); a capability that errors fails closed.
type Capabilities struct {
	Scope      nlu.ScopeClassifier
	Dosage     nlu.DosageClassifier
	Router     nlu.IntentRouter
	DrugIntent nlu.DrugIntentClassifier
}

// Sources are the external data collaborators.
type Sources struct {
	Locales directory.Source
	OnDuty  directory.Source
	Drugs   drugindex.Index
}

// Tracer receives per-stage events for observability surfaces. Optional.
type Tracer interface {
	Trace(stage, content string)
}

// Agent is the per-turn pipeline. Safe for concurrent use; all per-turn
// state lives on the stack.
type Agent struct {
	caps      Capabilities
	sources   Sources
	store     session.Store
	lex       config.Lexicon
	extractor *extract.Extractor
	guard     *guard

	maxResults      int
	windowLimit     int
	fallbackNeedsLocality bool

	logger *log.Logger
	tracer Tracer
}

// New wires the pipeline from config and collaborators.
func New(cfg config.Config, lex config.Lexicon, caps Capabilities, sources Sources, store session.Store) *Agent {
	logger := log.New(os.Stdout, "[agent] ", log.LstdFlags)
	return &Agent{
		caps:      caps,
		sources:   sources,
		store:     store,
		lex:       lex,
		extractor: extract.New(lex),
		guard: &guard{
			scope:  caps.Scope,
			dosage: caps.Dosage,
			lex:    lex,
			logger: logger,
		},
		maxResults:            cfg.MaxResults,
		windowLimit:           cfg.WindowLimit,
		fallbackNeedsLocality: cfg.FallbackNeedsLocality,
		logger:                logger,
	}
}

// SetTracer attaches a stage-event sink.
func (a *Agent) SetTracer(t Tracer) { a.tracer = t }

func (a *Agent) trace(stage, content string) {
	if a.tracer != nil {
		a.tracer.Trace(stage, content)
	}
}

// HandleTurn runs one user turn through the pipeline and persists both
// sides of the exchange. The returned reply is always usable; handler
// failures degrade their own section only.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, text string) (types.Reply, error) {
	window := a.store.ReadWindow(sessionID, a.windowLimit)
	window = append(window, types.Turn{Role: types.RoleUser, Content: text, Timestamp: time.Now()})

	reply := a.computeReply(ctx, window, text)

	a.store.Append(sessionID, types.Turn{Role: types.RoleUser, Content: text, Timestamp: time.Now()})
	a.store.Append(sessionID, types.Turn{Role: types.RoleAssistant, Content: reply.Text, Timestamp: time.Now()})
	return reply, nil
}

func (a *Agent) computeReply(ctx context.Context, window []types.Turn, text string) types.Reply {
	if !a.guard.checkScope(ctx, text) {
		a.trace("guardrails", "off-topic")
		return types.Reply{Text: OffTopicReply}
	}
	if verdict := a.guard.checkDosage(ctx, text); verdict.Blocked {
		a.trace("guardrails", "dosage blocked")
		return types.Reply{Text: verdict.Message}
	}

	labels, filters := a.route(ctx, window, text)
	a.trace("router", labelNames(labels))

	ents := a.entities(text, filters)
	results := a.runHandlers(ctx, labels, text, ents, filters)
	return a.assemble(ctx, text, ents, results)
}

func labelNames(labels []types.Label) string {
	s := ""
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += string(l)
	}
	return s
}
