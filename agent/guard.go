package agent

import (
	"context"
	"log"
	"strings"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/nlu"
	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

// Policy literals. These are part of the public reply contract; a blocked
// dosage message must start with PolicyPrefix byte for byte.
const (
	OffTopicReply = "Lo siento, pero no puedo proporcionar información sobre ese tema. Sin embargo, si necesitas información sobre farmacias o medicamentos, estaré encantado de ayudarte."

	PolicyPrefix = "Lo siento, pero no puedo ofrecer recomendaciones médicas."

	policyTail = "Te sugiero que consultes a un profesional de la salud o revises fuentes oficiales como MINSAL para obtener información precisa."

	EmergencyDisclaimer = "Ante una emergencia, acude a un hospital."
)

// DefaultPolicyMessage is the dosage-block reply used when the classifier
// yields nothing usable.
const DefaultPolicyMessage = PolicyPrefix + " " + policyTail

// guard is the two-layer safety check in front of routing. Layer 1 bounds
// the topic, layer 2 blocks dosage/prescription requests. Both layers pair
// a local keyword heuristic with a consumed classifier; classifier failures
// fail closed.
type guard struct {
	scope  nlu.ScopeClassifier
	dosage nlu.DosageClassifier
	lex    config.Lexicon
	logger *log.Logger
}

// checkScope reports whether the turn stays on topic. The deny-list
// heuristic short-circuits without consulting the classifier; a heuristic
// pass still requires the classifier's agreement when one is configured.
func (g *guard) checkScope(ctx context.Context, text string) bool {
	norm := normalize.Text(text)
	for _, term := range g.lex.OffTopicTerms {
		if strings.Contains(norm, term) {
			return false
		}
	}
	if g.scope == nil {
		return true
	}
	inScope, err := g.scope.ClassifyScope(ctx, text)
	if err != nil {
		g.logger.Printf("[guard] scope classifier failed, blocking: %v", err)
		return false
	}
	return inScope
}

// checkDosage blocks dosage/prescription requests. Purely informational
// drug questions (safe markers without clinical markers) pass without
// consulting the classifier.
func (g *guard) checkDosage(ctx context.Context, text string) types.SafetyVerdict {
	norm := normalize.Text(text)

	if containsAny(norm, g.lex.SafeMarkers) && !containsAny(norm, g.lex.ClinicalMarkers) {
		return types.SafetyVerdict{}
	}

	if g.dosageHeuristic(norm) {
		return types.SafetyVerdict{Blocked: true, Message: g.policyMessage(ctx, text)}
	}

	if g.dosage == nil {
		return types.SafetyVerdict{}
	}
	verdict, err := g.dosage.ClassifyDosage(ctx, text)
	if err != nil {
		g.logger.Printf("[guard] dosage classifier failed, blocking: %v", err)
		return types.SafetyVerdict{Blocked: true, Message: DefaultPolicyMessage}
	}
	if verdict.Blocked {
		verdict.Message = enforcePrefix(verdict.Message)
	}
	return verdict
}

func (g *guard) dosageHeuristic(norm string) bool {
	if containsAny(norm, g.lex.DosageTriggers) {
		return true
	}
	return strings.Contains(norm, "tomar") &&
		containsAny(norm, []string{"puedo", "debo", "deberia", "recomiendas"})
}

// policyMessage asks the classifier for a message to keep the wording
// varied, then enforces the fixed prefix.
func (g *guard) policyMessage(ctx context.Context, text string) string {
	if g.dosage == nil {
		return DefaultPolicyMessage
	}
	verdict, err := g.dosage.ClassifyDosage(ctx, text)
	if err != nil {
		return DefaultPolicyMessage
	}
	return enforcePrefix(verdict.Message)
}

func enforcePrefix(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" || !strings.HasPrefix(msg, PolicyPrefix) {
		return DefaultPolicyMessage
	}
	return msg
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
