package nlu

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmachile/medagent/llm"
	"github.com/farmachile/medagent/types"
)

const dosageSystemPrompt = `Eres un agente de seguridad especializado en detectar solicitudes médicas. Si el usuario pide recomendaciones médicas, dosis, qué tomar, prescribir, dosificación, etc., bloquea la solicitud. Devuelve JSON estructurado. NO bloquees si la persona solo pide información general o factual sobre un fármaco (p. ej.: 'qué me puedes decir de paracetamol', 'información sobre ibuprofeno', 'efectos adversos de X', 'contraindicaciones de Y', 'mecanismo de acción de Z'). Bloquea únicamente cuando exista una solicitud de consejo/indicación terapéutica, dosis, frecuencia, qué tomar o uso personalizado. Cuando 'blocked' sea true, el campo 'policy_message' DEBE comenzar exactamente con: 'Lo siento, pero no puedo ofrecer recomendaciones médicas.' Luego añade UNA frase breve (1-2 líneas) en español sugiriendo consultar a un profesional de la salud o revisar fuentes oficiales como MINSAL.
Devuelve SOLO un JSON: {"blocked": true|false, "policy_message": "..."}. Sin bloques de código.`

// LLMDosage classifies dosage/prescription requests with the chat model.
// Enforcement of the fixed policy prefix happens in the guard, not here.
type LLMDosage struct {
	client llm.Client
}

func NewLLMDosage(client llm.Client) *LLMDosage {
	return &LLMDosage{client: client}
}

func (d *LLMDosage) ClassifyDosage(ctx context.Context, text string) (types.SafetyVerdict, error) {
	out, err := d.client.Chat(ctx, dosageSystemPrompt, text)
	if err != nil {
		return types.SafetyVerdict{}, fmt.Errorf("dosage classifier: %w", err)
	}
	var decision struct {
		Blocked       bool   `json:"blocked"`
		PolicyMessage string `json:"policy_message"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSONObject(out)), &decision); err != nil {
		return types.SafetyVerdict{}, fmt.Errorf("dosage classifier: bad model output %q: %w", out, err)
	}
	return types.SafetyVerdict{Blocked: decision.Blocked, Message: decision.PolicyMessage}, nil
}
