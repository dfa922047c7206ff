package nlu

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmachile/medagent/llm"
)

const scopeSystemPrompt = `Eres un clasificador de alcance para un asistente de farmacias y medicamentos en Chile.
El asistente SOLO responde sobre: farmacias (ubicaciones, horarios, turnos), información factual de medicamentos del vademécum, y saludos.
Clasifica el mensaje del usuario.
Devuelve SOLO un JSON: {"in_scope": true} o {"in_scope": false}. Sin explicaciones ni bloques de código.`

// LLMScope classifies scope with the chat model.
type LLMScope struct {
	client llm.Client
}

func NewLLMScope(client llm.Client) *LLMScope {
	return &LLMScope{client: client}
}

func (s *LLMScope) ClassifyScope(ctx context.Context, text string) (bool, error) {
	out, err := s.client.Chat(ctx, scopeSystemPrompt, text)
	if err != nil {
		return false, fmt.Errorf("scope classifier: %w", err)
	}
	var decision struct {
		InScope bool `json:"in_scope"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSONObject(out)), &decision); err != nil {
		return false, fmt.Errorf("scope classifier: bad model output %q: %w", out, err)
	}
	return decision.InScope, nil
}
