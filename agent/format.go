package agent

import (
	"context"
	"strings"

	"github.com/farmachile/medagent/types"
)

// GreetingReply is the fixed small-talk answer.
const GreetingReply = "¡Hola! Soy tu asistente informativo sobre farmacias en Chile y sobre medicamentos del vademécum. Estoy muy bien, gracias por preguntar. ¿Te gustaría que te ayude a encontrar farmacias (abiertas o de turno) o prefieres información factual sobre un medicamento?"

const (
	locationsHeader = "Farmacias disponibles:"
	onDutyHeader    = "Farmacias de turno hoy:"
	drugHeader      = "Información de medicamentos (vademécum):"

	minsalSource = "Fuente: MINSAL."
	vademSource  = "Fuente: vademécum local."
)

// assemble merges the result arena into the final reply. Section order is
// fixed (greeting, locations, on-duty, drug info) no matter which handler
// finished first. The scope backstop runs last and overrides everything.
func (a *Agent) assemble(ctx context.Context, text string, ents types.Entities, results []handlerResult) types.Reply {
	if !a.guard.checkScope(ctx, text) {
		return types.Reply{Text: OffTopicReply}
	}

	loc := results[0]
	duty := results[1]
	drug := results[2]
	greet := results[3]

	var sections []string
	var degraded bool

	if greet.ran {
		sections = append(sections, greet.greeting)
	}

	if loc.ran {
		switch {
		case loc.fault != nil:
			degraded = true
			sections = append(sections, "La información de farmacias no está disponible en este momento.")
		case len(loc.records) == 0:
			sections = append(sections, noResultsLine("farmacias", ents))
		default:
			section := locationsHeader
			if loc.fallback {
				section = fallbackNote(ents) + "\n" + onDutyHeader
			}
			sections = append(sections, section+"\n"+renderRecords(loc.records)+"\n"+minsalSource)
		}
	}

	if duty.ran {
		switch {
		case duty.fault != nil:
			degraded = true
			sections = append(sections, "La información de farmacias de turno no está disponible en este momento.")
		case len(duty.records) == 0:
			sections = append(sections, noResultsLine("farmacias de turno", ents))
		default:
			sections = append(sections, onDutyHeader+"\n"+renderRecords(duty.records)+"\n"+minsalSource)
		}
	}

	if drug.ran {
		switch {
		case drug.fault != nil:
			degraded = true
			sections = append(sections, "La información de medicamentos no está disponible en este momento.")
		case drug.notFound:
			sections = append(sections, notFoundLine(drug))
		case len(drug.drugNames) > 0:
			sections = append(sections, drugHeader+"\n"+capitalize(drug.listTarget)+": "+strings.Join(drug.drugNames, ", ")+"\n"+vademSource)
		default:
			sections = append(sections, drugHeader+"\n"+renderDrugs(drug.drugs)+"\n"+vademSource)
		}
	}

	textOut := strings.Join(sections, "\n\n")
	if loc.ran || duty.ran || drug.ran {
		textOut += "\n\n" + EmergencyDisclaimer
	}

	return types.Reply{
		Text:        textOut,
		UsedFilters: usedFilters(ents),
		Degraded:    degraded,
	}
}

func renderRecords(records []types.LocationRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(r.Name())
		if addr := r.Address(); addr != "" {
			b.WriteString(", ")
			b.WriteString(addr)
		}
		if comuna := r.Locality(); comuna != "" {
			b.WriteString(", ")
			b.WriteString(comuna)
		}
		if tel := r.Phone(); tel != "" {
			b.WriteString(". Tel: ")
			b.WriteString(tel)
		}
		if apertura, cierre := r[types.FieldHoraApertura], r[types.FieldHoraCierre]; apertura != "" && cierre != "" {
			b.WriteString(". Horario: ")
			b.WriteString(apertura)
			b.WriteString(" a ")
			b.WriteString(cierre)
		}
	}
	return b.String()
}

func renderDrugs(drugs []types.DrugRecord) string {
	var b strings.Builder
	for i, d := range drugs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- Nombre: ")
		b.WriteString(d.Name)
		writeField(&b, "Clase", d.Class)
		writeField(&b, "Indicaciones", d.Indications)
		writeField(&b, "Mecanismo", d.Mechanism)
		writeField(&b, "Vía de administración", d.Route)
		writeField(&b, "Contraindicaciones", d.Contraindications)
		writeField(&b, "Interacciones", d.Interactions)
		writeField(&b, "Advertencias", d.Warnings)
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString("\n  ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
}

func noResultsLine(what string, ents types.Entities) string {
	switch {
	case ents.AddressMode() && ents.Locality != "":
		return "No se encontraron " + what + " para la dirección indicada en " + ents.Locality + "."
	case ents.AddressMode():
		return "No se encontraron " + what + " para la dirección indicada."
	case ents.Locality != "":
		return "No se encontraron " + what + " en " + ents.Locality + "."
	}
	return "No se encontraron " + what + "."
}

func fallbackNote(ents types.Entities) string {
	where := ""
	if ents.Locality != "" {
		where = " para " + ents.Locality
	}
	return "El listado general no devolvió resultados" + where + "; te muestro las farmacias de turno de la comuna."
}

func notFoundLine(res handlerResult) string {
	target := res.drugTarget
	if res.listTarget != "" {
		target = res.listTarget
	}
	if target == "" {
		return "No hay información sobre el medicamento consultado en el vademécum local."
	}
	return "No hay información sobre " + target + " en el vademécum local."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func usedFilters(ents types.Entities) map[string]string {
	filters := map[string]string{}
	if ents.Locality != "" {
		filters[types.FilterComuna] = ents.Locality
	}
	if ents.AddressMode() {
		filters[types.FilterDireccion] = strings.Join(ents.AddressTokens, " ")
	}
	if ents.Date != "" {
		filters[types.FilterFecha] = ents.Date
	}
	if ents.Day != "" {
		filters[types.FilterDia] = ents.Day
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}
