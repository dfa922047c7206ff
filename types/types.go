// Package types holds the shared data model for the assistant:
// conversation turns, routing decisions, directory records and replies.
package types

import (
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are immutable once
// appended; the core only ever reads them.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Label is a domain route label. The set is closed; anything else coming
// back from a router implementation is an internal fault.
type Label string

const (
	LabelGreeting  Label = "greeting"
	LabelLocations Label = "locations"
	LabelOnDuty    Label = "on_duty"
	LabelDrugInfo  Label = "drug_info"
)

// HandlerOrder is the fixed execution/merge order for multi-label turns.
// Results are merged in this order regardless of completion order.
var HandlerOrder = []Label{LabelLocations, LabelOnDuty, LabelDrugInfo, LabelGreeting}

// Valid reports whether l belongs to the closed label set.
func (l Label) Valid() bool {
	switch l {
	case LabelGreeting, LabelLocations, LabelOnDuty, LabelDrugInfo:
		return true
	}
	return false
}

// RouteDecision is what an intent router returns for one turn: one or more
// labels plus any filter fields the user stated explicitly.
type RouteDecision struct {
	Labels  []Label           `json:"labels"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Filter keys a router may populate. They mirror the upstream directory
// field names so handlers can apply them without translation.
const (
	FilterComuna       = "comuna"
	FilterLocalidad    = "localidad"
	FilterDireccion    = "direccion"
	FilterFecha        = "fecha"
	FilterDia          = "funcionamiento_dia"
	FilterLocalNombre  = "local_nombre"
	FilterTelefono     = "local_telefono"
	FilterHoraApertura = "funcionamiento_hora_apertura"
	FilterHoraCierre   = "funcionamiento_hora_cierre"
	FilterFkRegion     = "fk_region"
	FilterFkComuna     = "fk_comuna"
	FilterFkLocalidad  = "fk_localidad"
)

// Entities is what the extractor pulls out of a normalized user turn.
// Every field is optional; the zero value is a valid "nothing found".
type Entities struct {
	Locality      string   // normalized comuna name
	AddressTokens []string // normalized, deduplicated address tokens
	Day           string   // Spanish weekday when the turn says hoy/ahora
	Date          string   // explicit unambiguous date, passed through
}

// AddressMode reports whether the turn looked like an address query.
func (e Entities) AddressMode() bool { return len(e.AddressTokens) > 0 }

// LocationRecord is a pharmacy directory entry as returned upstream.
// It is an opaque field mapping; only the locality and address fields have
// matching semantics. Records are never mutated, filtering produces new
// subsets.
type LocationRecord map[string]string

// Upstream field names (MINSAL schema).
const (
	FieldName         = "local_nombre"
	FieldLocality     = "comuna_nombre"
	FieldSubLocality  = "localidad_nombre"
	FieldAddress      = "local_direccion"
	FieldPhone        = "local_telefono"
	FieldDate         = "fecha"
	FieldDay          = "funcionamiento_dia"
	FieldHoraApertura = "funcionamiento_hora_apertura"
	FieldHoraCierre   = "funcionamiento_hora_cierre"
)

func (r LocationRecord) Name() string     { return r[FieldName] }
func (r LocationRecord) Locality() string { return r[FieldLocality] }
func (r LocationRecord) Address() string  { return r[FieldAddress] }
func (r LocationRecord) Phone() string    { return r[FieldPhone] }

// DrugRecord is one entry from the drug reference index.
type DrugRecord struct {
	ID                string   `json:"drug_id"`
	Name              string   `json:"drug_name"`
	Aliases           []string `json:"aliases,omitempty"`
	Class             string   `json:"drug_class"`
	Indications       string   `json:"indications"`
	Mechanism         string   `json:"mechanism"`
	Route             string   `json:"route"`
	Pregnancy         string   `json:"pregnancy"`
	Contraindications string   `json:"contraindications,omitempty"`
	Interactions      string   `json:"interactions,omitempty"`
	Warnings          string   `json:"warnings,omitempty"`
	Content           string   `json:"content"`
}

// DrugQueryMode selects how the drug handler queries the index.
type DrugQueryMode string

const (
	DrugByName      DrugQueryMode = "by_name"
	DrugListByField DrugQueryMode = "list_by_field"
)

// DrugQuery is the interpreted intent of a drug-information turn.
type DrugQuery struct {
	Mode   DrugQueryMode `json:"mode"`
	Field  string        `json:"field,omitempty"` // payload field label in list mode
	Query  string        `json:"query"`
	Target string        `json:"target,omitempty"` // drug/class token, Spanish
}

// SafetyVerdict is the outcome of a policy check. Blocked verdicts carry
// the user-facing policy message.
type SafetyVerdict struct {
	Blocked bool   `json:"blocked"`
	Message string `json:"message,omitempty"`
}

// Reply is the core's answer for one turn.
type Reply struct {
	Text        string            `json:"text"`
	UsedFilters map[string]string `json:"usedFilters,omitempty"`
	Degraded    bool              `json:"degraded"`
}
