package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/farmachile/medagent/llm"
	"github.com/farmachile/medagent/types"
)

const drugIntentSystemPrompt = `Eres un intérprete de intención para consultas de medicamentos. Clasifica la consulta en: by_name | list_by_class | list_by_indications | list_by_mechanism | list_by_route | list_by_pregnancy_category. Si detectas frase tipo 'qué X existen' (p.ej., antibióticos), mapea a la dimensión correcta (clase=antibiotics, indicaciones, mecanismo, vía, categoría de embarazo). IMPORTANTE: si la consulta menciona un fármaco específico (p.ej., 'para qué sirve la morfina', 'efectos adversos de ibuprofeno', 'qué es el omeprazol', 'contraindicaciones de amoxicilina'), clasifica como 'by_name'. Usa listados (list_by_*) solo cuando el usuario pida una LISTA de medicamentos por clase/indicación/mecanismo/vía/categoría (p.ej., '¿qué analgésicos existen?', 'medicamentos para asma?').
Devuelve SOLO un JSON: {"mode": "...", "target_es": "..."}. Sin bloques de código.`

// listFields maps list modes to the index payload field they filter on.
var listFields = map[string]string{
	"list_by_class":              "Drug Class",
	"list_by_indications":        "Indications",
	"list_by_mechanism":          "Mechanism of Action",
	"list_by_route":              "Route of Administration",
	"list_by_pregnancy_category": "Pregnancy Category",
}

// LLMDrugIntent interprets drug-information turns with the chat model.
type LLMDrugIntent struct {
	client llm.Client
}

func NewLLMDrugIntent(client llm.Client) *LLMDrugIntent {
	return &LLMDrugIntent{client: client}
}

func (d *LLMDrugIntent) Interpret(ctx context.Context, text string) (types.DrugQuery, error) {
	out, err := d.client.Chat(ctx, drugIntentSystemPrompt, text)
	if err != nil {
		return types.DrugQuery{}, fmt.Errorf("drug intent: %w", err)
	}
	var decision struct {
		Mode     string `json:"mode"`
		TargetES string `json:"target_es"`
	}
	if err := json.Unmarshal([]byte(extractFirstJSONObject(out)), &decision); err != nil {
		return types.DrugQuery{}, fmt.Errorf("drug intent: bad model output %q: %w", out, err)
	}

	query := types.DrugQuery{Query: text, Target: strings.TrimSpace(decision.TargetES)}
	switch {
	case decision.Mode == "by_name":
		query.Mode = types.DrugByName
	case listFields[decision.Mode] != "":
		query.Mode = types.DrugListByField
		query.Field = listFields[decision.Mode]
	default:
		return types.DrugQuery{}, fmt.Errorf("drug intent: unknown mode %q", decision.Mode)
	}
	return query, nil
}
