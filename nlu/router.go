package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/farmachile/medagent/llm"
	"github.com/farmachile/medagent/types"
)

const routerSystemPrompt = `Eres un agente router.
1) Clasifica el mensaje del usuario en una o varias rutas: 'farmacias', 'turnos', 'meds' o 'saludo'.
2) Extrae campos de filtro SOLO si están explícitos en el texto (no inventes datos).
   Campos soportados (si presentes):
   - comuna, localidad, direccion, fecha, funcionamiento_dia,
   - fk_region, fk_comuna, fk_localidad, local_nombre, local_telefono,
   - funcionamiento_hora_apertura, funcionamiento_hora_cierre.
3) Si el mensaje es un saludo o small talk (p.ej., 'hola', 'buenos días', 'cómo estás'), usa 'saludo' como ruta y no intentes extraer filtros.
4) Si el usuario pregunta por MÁS DE UNA COSA (p.ej., farmacias y turnos), llena 'routes' con TODAS las rutas aplicables.
5) Devuelve SIEMPRE un único JSON con la clave 'routes' (lista) y los campos de filtro presentes. Si un campo no aparece, omítelo o déjalo null. Sin bloques de código.`

// routerSchema is the contract the model reply must satisfy before any
// label is trusted.
const routerSchema = `{
	"type": "object",
	"required": ["routes"],
	"properties": {
		"routes": {
			"type": "array",
			"minItems": 1,
			"items": {"enum": ["farmacias", "turnos", "meds", "saludo"]}
		},
		"comuna": {"type": ["string", "null"]},
		"localidad": {"type": ["string", "null"]},
		"direccion": {"type": ["string", "null"]},
		"fecha": {"type": ["string", "null"]},
		"funcionamiento_dia": {"type": ["string", "null"]},
		"fk_region": {"type": ["string", "null"]},
		"fk_comuna": {"type": ["string", "null"]},
		"fk_localidad": {"type": ["string", "null"]},
		"local_nombre": {"type": ["string", "null"]},
		"local_telefono": {"type": ["string", "null"]},
		"funcionamiento_hora_apertura": {"type": ["string", "null"]},
		"funcionamiento_hora_cierre": {"type": ["string", "null"]}
	}
}`

// routeNames maps the model's route vocabulary to domain labels.
var routeNames = map[string]types.Label{
	"farmacias": types.LabelLocations,
	"turnos":    types.LabelOnDuty,
	"meds":      types.LabelDrugInfo,
	"saludo":    types.LabelGreeting,
}

var filterKeys = []string{
	types.FilterComuna, types.FilterLocalidad, types.FilterDireccion,
	types.FilterFecha, types.FilterDia, types.FilterFkRegion,
	types.FilterFkComuna, types.FilterFkLocalidad, types.FilterLocalNombre,
	types.FilterTelefono, types.FilterHoraApertura, types.FilterHoraCierre,
}

// LLMRouter routes turns with the chat model and validates the reply
// against routerSchema before trusting it.
type LLMRouter struct {
	client llm.Client
	schema *gojsonschema.Schema
}

func NewLLMRouter(client llm.Client) (*LLMRouter, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(routerSchema))
	if err != nil {
		return nil, fmt.Errorf("router: compile schema: %w", err)
	}
	return &LLMRouter{client: client, schema: schema}, nil
}

func (r *LLMRouter) Route(ctx context.Context, window []types.Turn) (types.RouteDecision, error) {
	out, err := r.client.Chat(ctx, routerSystemPrompt, renderWindow(window))
	if err != nil {
		return types.RouteDecision{}, fmt.Errorf("router: %w", err)
	}
	js := extractFirstJSONObject(out)

	result, err := r.schema.Validate(gojsonschema.NewStringLoader(js))
	if err != nil {
		return types.RouteDecision{}, fmt.Errorf("router: bad model output %q: %w", out, err)
	}
	if !result.Valid() {
		return types.RouteDecision{}, fmt.Errorf("router: schema violation: %v", result.Errors())
	}

	var raw struct {
		Routes []string `json:"routes"`
	}
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		return types.RouteDecision{}, fmt.Errorf("router: decode: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(js), &fields); err != nil {
		return types.RouteDecision{}, fmt.Errorf("router: decode: %w", err)
	}

	var decision types.RouteDecision
	seen := map[types.Label]struct{}{}
	for _, name := range raw.Routes {
		label := routeNames[name]
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		decision.Labels = append(decision.Labels, label)
	}
	for _, key := range filterKeys {
		if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
			if decision.Filters == nil {
				decision.Filters = map[string]string{}
			}
			decision.Filters[key] = strings.TrimSpace(v)
		}
	}
	return decision, nil
}

// renderWindow flattens the conversation window, newest turn last. The
// model sees prior turns as context lines.
func renderWindow(window []types.Turn) string {
	var b strings.Builder
	for _, turn := range window {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
