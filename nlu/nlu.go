// Package nlu holds the language-understanding capabilities the pipeline
// consumes: scope and dosage policy classifiers, the intent router and the
// drug-intent interpreter. Each capability is an interface backed here by a
// chat-model implementation; the core never calls a model directly.
package nlu

import (
	"context"
	"strings"

	"github.com/farmachile/medagent/types"
)

// ScopeClassifier decides whether a turn stays inside the assistant's topic
// boundary (pharmacies, drug reference facts, greetings).
type ScopeClassifier interface {
	ClassifyScope(ctx context.Context, text string) (inScope bool, err error)
}

// DosageClassifier decides whether a turn asks for a dosage or prescription.
// A blocked verdict carries the user-facing policy message.
type DosageClassifier interface {
	ClassifyDosage(ctx context.Context, text string) (types.SafetyVerdict, error)
}

// IntentRouter maps a conversation window to one or more domain labels plus
// any filter fields stated explicitly by the user.
type IntentRouter interface {
	Route(ctx context.Context, window []types.Turn) (types.RouteDecision, error)
}

// DrugIntentClassifier interprets a drug-information turn into a query mode
// and target term.
type DrugIntentClassifier interface {
	Interpret(ctx context.Context, text string) (types.DrugQuery, error)
}

// extractFirstJSONObject pulls the first {...} span out of a model reply.
// Models wrap JSON in prose or code fences often enough that strict parsing
// is a losing game.
func extractFirstJSONObject(s string) string {
	s = strings.TrimSpace(s)
	l := strings.IndexByte(s, '{')
	r := strings.LastIndexByte(s, '}')
	if l >= 0 && r > l {
		return s[l : r+1]
	}
	return s
}
