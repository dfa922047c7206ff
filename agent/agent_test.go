package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/farmachile/medagent/config"
	"github.com/farmachile/medagent/session"
	"github.com/farmachile/medagent/types"
)

// ---- fakes ----

type fakeScope struct {
	fn    func(text string) (bool, error)
	calls int
}

func (f *fakeScope) ClassifyScope(_ context.Context, text string) (bool, error) {
	f.calls++
	return f.fn(text)
}

type fakeDosage struct {
	verdict types.SafetyVerdict
	err     error
}

func (f *fakeDosage) ClassifyDosage(context.Context, string) (types.SafetyVerdict, error) {
	return f.verdict, f.err
}

type fakeRouter struct {
	decision types.RouteDecision
	err      error
}

func (f *fakeRouter) Route(context.Context, []types.Turn) (types.RouteDecision, error) {
	return f.decision, f.err
}

type fakeDrugIntent struct {
	query types.DrugQuery
	err   error
}

func (f *fakeDrugIntent) Interpret(context.Context, string) (types.DrugQuery, error) {
	return f.query, f.err
}

type fakeSource struct {
	records []types.LocationRecord
	err     error
	calls   int
}

func (f *fakeSource) FetchAll(context.Context) ([]types.LocationRecord, error) {
	f.calls++
	return f.records, f.err
}

type fakeIndex struct {
	hits       []types.DrugRecord
	names      []string
	err        error
	lastQuery  string
	lastField  string
	lastValue  string
	lastSynons []string
}

func (f *fakeIndex) Search(_ context.Context, query string, _ int) ([]types.DrugRecord, error) {
	f.lastQuery = query
	return f.hits, f.err
}

func (f *fakeIndex) ListByField(_ context.Context, field, value string, synonyms []string, _ int) ([]string, error) {
	f.lastField, f.lastValue, f.lastSynons = field, value, synonyms
	return f.names, f.err
}

// ---- fixtures ----

func rec(name, comuna, addr string) types.LocationRecord {
	return types.LocationRecord{
		types.FieldName:     name,
		types.FieldLocality: comuna,
		types.FieldAddress:  addr,
	}
}

func testConfig() config.Config {
	return config.Config{MaxResults: 20, WindowLimit: 10, FallbackNeedsLocality: true}
}

func newAgent(caps Capabilities, sources Sources) *Agent {
	return New(testConfig(), config.DefaultLexicon(), caps, sources, session.NewMemoryStore(0))
}

func routeTo(labels []types.Label, filters map[string]string) *fakeRouter {
	return &fakeRouter{decision: types.RouteDecision{Labels: labels, Filters: filters}}
}

// ---- safety ----

func TestOffTopicReplyIsExact(t *testing.T) {
	a := newAgent(Capabilities{}, Sources{})
	reply, err := a.HandleTurn(context.Background(), "s1", "¿me das una receta de lentejas?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != OffTopicReply {
		t.Errorf("reply = %q", reply.Text)
	}
	if strings.Contains(reply.Text, EmergencyDisclaimer) {
		t.Error("off-topic reply must not carry the disclaimer")
	}
}

func TestDosageHeuristicBlocksWithDefaultPolicy(t *testing.T) {
	a := newAgent(Capabilities{}, Sources{})
	reply, _ := a.HandleTurn(context.Background(), "s1", "¿cuánto paracetamol puedo tomar al día?")
	if reply.Text != DefaultPolicyMessage {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestDosageClassifierMessageMustKeepPrefix(t *testing.T) {
	caps := Capabilities{Dosage: &fakeDosage{verdict: types.SafetyVerdict{
		Blocked: true,
		Message: "No corresponde entregar esa información.",
	}}}
	a := newAgent(caps, Sources{})
	reply, _ := a.HandleTurn(context.Background(), "s1", "dosis de ibuprofeno para mi hijo")
	if !strings.HasPrefix(reply.Text, PolicyPrefix) {
		t.Errorf("reply = %q, must start with the policy prefix", reply.Text)
	}
}

func TestDosageClassifierFailureFailsClosed(t *testing.T) {
	caps := Capabilities{Dosage: &fakeDosage{err: context.DeadlineExceeded}}
	a := newAgent(caps, Sources{})
	reply, _ := a.HandleTurn(context.Background(), "s1", "necesito saber si tomar esto me conviene")
	if reply.Text != DefaultPolicyMessage {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestSafeMarkersPassWithoutClassifier(t *testing.T) {
	idx := &fakeIndex{hits: []types.DrugRecord{{Name: "Ibuprofen", Content: "Drug Name: Ibuprofen"}}}
	caps := Capabilities{
		Router: routeTo([]types.Label{types.LabelDrugInfo}, nil),
		Dosage: &fakeDosage{verdict: types.SafetyVerdict{Blocked: true, Message: DefaultPolicyMessage}},
	}
	a := newAgent(caps, Sources{Drugs: idx})
	reply, _ := a.HandleTurn(context.Background(), "s1", "contraindicaciones de ibuprofeno")
	if strings.HasPrefix(reply.Text, PolicyPrefix) {
		t.Errorf("informational question was blocked: %q", reply.Text)
	}
}

func TestScopeBackstopOverridesHandlerContent(t *testing.T) {
	scope := &fakeScope{}
	scope.fn = func(string) (bool, error) {
		// Pass the entry guard, trip the backstop.
		return scope.calls == 1, nil
	}
	locales := &fakeSource{records: []types.LocationRecord{rec("Cruz Verde", "LEBU", "Saavedra 451")}}
	caps := Capabilities{
		Scope:  scope,
		Router: routeTo([]types.Label{types.LabelLocations}, nil),
	}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: &fakeSource{}})
	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias en lebu")
	if reply.Text != OffTopicReply {
		t.Errorf("backstop did not override, reply = %q", reply.Text)
	}
}

// ---- routing ----

func TestGreetingOnlyHasNoDisclaimer(t *testing.T) {
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelGreeting}, nil)}
	a := newAgent(caps, Sources{})
	reply, _ := a.HandleTurn(context.Background(), "s1", "hola, ¿cómo estás?")
	if reply.Text != GreetingReply {
		t.Errorf("reply = %q", reply.Text)
	}
	if reply.Degraded {
		t.Error("greeting must not be degraded")
	}
}

func TestInvalidRouteFallsBackToDrugInfo(t *testing.T) {
	idx := &fakeIndex{hits: []types.DrugRecord{{Name: "Omeprazole", Content: "Drug Name: Omeprazole"}}}
	caps := Capabilities{Router: routeTo([]types.Label{"clima"}, nil)}
	a := newAgent(caps, Sources{Drugs: idx})
	reply, _ := a.HandleTurn(context.Background(), "s1", "qué es el omeprazol")
	if !strings.Contains(reply.Text, "Omeprazole") {
		t.Errorf("reply = %q, expected drug info fallback", reply.Text)
	}
}

func TestRouterFailureUsesKeywordFallback(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{rec("Cruz Verde", "LEBU", "Saavedra 451")}}
	caps := Capabilities{Router: &fakeRouter{err: context.DeadlineExceeded}}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: &fakeSource{}})
	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias en lebu")
	if !strings.Contains(reply.Text, "Cruz Verde") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestOrderLabelsFixedOrder(t *testing.T) {
	got, err := orderLabels([]types.Label{types.LabelGreeting, types.LabelOnDuty, types.LabelLocations})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Label{types.LabelLocations, types.LabelOnDuty, types.LabelGreeting}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v", got)
		}
	}

	if _, err := orderLabels([]types.Label{"clima"}); err == nil {
		t.Fatal("expected invalid route error")
	}
	if _, err := orderLabels(nil); err == nil {
		t.Fatal("expected invalid route error for empty labels")
	}
}

// ---- handlers and merge ----

func TestLocationsExactLocalityEndToEnd(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{
		rec("Cruz Verde", "LEBU", "Saavedra 451"),
		rec("Ahumada", "Los Ángeles", "Colón 345"),
	}}
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelLocations}, map[string]string{types.FilterComuna: "Lebu"})}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: &fakeSource{}})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿qué farmacias hay en Lebu?")
	if !strings.Contains(reply.Text, "Cruz Verde") || strings.Contains(reply.Text, "Ahumada") {
		t.Errorf("reply = %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Fuente: MINSAL.") {
		t.Error("missing source citation")
	}
	if n := strings.Count(reply.Text, EmergencyDisclaimer); n != 1 {
		t.Errorf("disclaimer count = %d", n)
	}
	if reply.UsedFilters[types.FilterComuna] != "lebu" {
		t.Errorf("used filters = %v", reply.UsedFilters)
	}
}

func TestAddressConjunctiveEndToEnd(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{
		rec("Cruz Verde", "Santiago", "Avenida Libertador Bernardo Ohiggins 784"),
		rec("Salcobrand", "Santiago", "Merced 120"),
	}}
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelLocations}, nil)}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: &fakeSource{}})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿cuál farmacia queda en avenida libertador bernardo ohiggins 784?")
	if !strings.Contains(reply.Text, "Cruz Verde") || strings.Contains(reply.Text, "Salcobrand") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestCrossDomainFallbackToOnDuty(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{rec("Ahumada", "Los Ángeles", "Colón 345")}}
	onDuty := &fakeSource{records: []types.LocationRecord{rec("Farmacia de Turno Lebu", "LEBU", "Prat 9")}}
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelLocations}, map[string]string{types.FilterComuna: "lebu"})}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: onDuty})

	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias en lebu")
	if !strings.Contains(reply.Text, "Farmacia de Turno Lebu") {
		t.Errorf("reply = %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "El listado general no devolvió resultados") {
		t.Errorf("missing fallback note in %q", reply.Text)
	}
	if onDuty.calls != 1 {
		t.Errorf("on-duty fetches = %d", onDuty.calls)
	}
}

func TestNoFallbackWithoutLocality(t *testing.T) {
	locales := &fakeSource{}
	onDuty := &fakeSource{records: []types.LocationRecord{rec("Turno", "LEBU", "Prat 9")}}
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelLocations}, nil)}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: onDuty})

	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias disponibles")
	if onDuty.calls != 0 {
		t.Errorf("on-duty fetches = %d, fallback requires a locality", onDuty.calls)
	}
	if !strings.Contains(reply.Text, "No se encontraron farmacias") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestPartialFailureDegradesOneSection(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{rec("Cruz Verde", "LEBU", "Saavedra 451")}}
	onDuty := &fakeSource{err: types.NewUpstreamTimeout("minsal_turnos", context.DeadlineExceeded)}
	caps := Capabilities{Router: routeTo(
		[]types.Label{types.LabelLocations, types.LabelOnDuty},
		map[string]string{types.FilterComuna: "lebu"},
	)}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: onDuty})

	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias y turnos en lebu")
	if !strings.Contains(reply.Text, "Cruz Verde") {
		t.Errorf("healthy section lost: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "farmacias de turno no está disponible") {
		t.Errorf("missing unavailable note: %q", reply.Text)
	}
	if !reply.Degraded {
		t.Error("reply must be flagged degraded")
	}
	if n := strings.Count(reply.Text, EmergencyDisclaimer); n != 1 {
		t.Errorf("disclaimer count = %d", n)
	}
}

func TestMergeOrderIsFixed(t *testing.T) {
	locales := &fakeSource{records: []types.LocationRecord{rec("General", "LEBU", "Prat 1")}}
	onDuty := &fakeSource{records: []types.LocationRecord{rec("Turno", "LEBU", "Prat 2")}}
	caps := Capabilities{Router: routeTo(
		[]types.Label{types.LabelOnDuty, types.LabelGreeting, types.LabelLocations},
		map[string]string{types.FilterComuna: "lebu"},
	)}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: onDuty})

	reply, _ := a.HandleTurn(context.Background(), "s1", "hola, farmacias y turnos en lebu")
	iGreet := strings.Index(reply.Text, "¡Hola!")
	iLoc := strings.Index(reply.Text, "General")
	iDuty := strings.Index(reply.Text, "Turno,")
	if iGreet < 0 || iLoc < 0 || iDuty < 0 || !(iGreet < iLoc && iLoc < iDuty) {
		t.Errorf("section order wrong: greet=%d loc=%d duty=%d\n%s", iGreet, iLoc, iDuty, reply.Text)
	}
}

func TestResultCap(t *testing.T) {
	var records []types.LocationRecord
	for i := 0; i < 60; i++ {
		records = append(records, rec("Farmacia", "LEBU", "Prat 1"))
	}
	locales := &fakeSource{records: records}
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelLocations}, map[string]string{types.FilterComuna: "lebu"})}
	a := newAgent(caps, Sources{Locales: locales, OnDuty: &fakeSource{}})

	reply, _ := a.HandleTurn(context.Background(), "s1", "farmacias en lebu")
	if n := strings.Count(reply.Text, "- Farmacia"); n != 20 {
		t.Errorf("rendered %d records, expected the cap of 20", n)
	}
}

// ---- drug info ----

func TestDrugByNameWithAliasFilter(t *testing.T) {
	idx := &fakeIndex{hits: []types.DrugRecord{
		{Name: "Acetaminophen", Content: "Drug Name: Acetaminophen", Class: "Analgesic"},
		{Name: "Metformin", Content: "Drug Name: Metformin", Class: "Biguanide"},
	}}
	caps := Capabilities{
		Router:     routeTo([]types.Label{types.LabelDrugInfo}, nil),
		DrugIntent: &fakeDrugIntent{query: types.DrugQuery{Mode: types.DrugByName, Target: "paracetamol"}},
	}
	a := newAgent(caps, Sources{Drugs: idx})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿para qué sirve el paracetamol?")
	if !strings.Contains(reply.Text, "Acetaminophen") || strings.Contains(reply.Text, "Metformin") {
		t.Errorf("reply = %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Fuente: vademécum local.") {
		t.Error("missing vademecum citation")
	}
}

func TestDrugListByFieldUsesAliasTable(t *testing.T) {
	idx := &fakeIndex{names: []string{"Amoxicillin", "Azithromycin"}}
	caps := Capabilities{
		Router: routeTo([]types.Label{types.LabelDrugInfo}, nil),
		DrugIntent: &fakeDrugIntent{query: types.DrugQuery{
			Mode: types.DrugListByField, Field: "Drug Class", Target: "antibióticos",
		}},
	}
	a := newAgent(caps, Sources{Drugs: idx})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿qué antibióticos existen?")
	if idx.lastField != "Drug Class" {
		t.Errorf("field = %q", idx.lastField)
	}
	if idx.lastValue != "antibiotic" {
		t.Errorf("primary value = %q, expected the alias-table head", idx.lastValue)
	}
	if !strings.Contains(reply.Text, "Amoxicillin, Azithromycin") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestDrugNotFoundStatement(t *testing.T) {
	idx := &fakeIndex{}
	caps := Capabilities{
		Router: routeTo([]types.Label{types.LabelDrugInfo}, nil),
		DrugIntent: &fakeDrugIntent{query: types.DrugQuery{
			Mode: types.DrugListByField, Field: "Drug Class", Target: "antidepresivos",
		}},
	}
	a := newAgent(caps, Sources{Drugs: idx})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿qué antidepresivos existen?")
	if !strings.Contains(reply.Text, "No hay información sobre antidepresivos en el vademécum local.") {
		t.Errorf("reply = %q", reply.Text)
	}
}

func TestByNameCluesOverrideListVerdict(t *testing.T) {
	idx := &fakeIndex{hits: []types.DrugRecord{{Name: "Morphine", Content: "Drug Name: Morphine"}}}
	caps := Capabilities{
		Router: routeTo([]types.Label{types.LabelDrugInfo}, nil),
		DrugIntent: &fakeDrugIntent{query: types.DrugQuery{
			Mode: types.DrugListByField, Field: "Drug Class", Target: "morfina",
		}},
	}
	a := newAgent(caps, Sources{Drugs: idx})

	reply, _ := a.HandleTurn(context.Background(), "s1", "¿para qué sirve la morfina?")
	if idx.lastField != "" {
		t.Error("list query ran despite by-name clue")
	}
	if !strings.Contains(reply.Text, "Morphine") {
		t.Errorf("reply = %q", reply.Text)
	}
}

// ---- session ----

func TestHandleTurnPersistsBothTurns(t *testing.T) {
	store := session.NewMemoryStore(0)
	caps := Capabilities{Router: routeTo([]types.Label{types.LabelGreeting}, nil)}
	a := New(testConfig(), config.DefaultLexicon(), caps, Sources{}, store)

	if _, err := a.HandleTurn(context.Background(), "s1", "hola"); err != nil {
		t.Fatal(err)
	}
	window := store.ReadWindow("s1", 10)
	if len(window) != 2 {
		t.Fatalf("stored %d turns", len(window))
	}
	if window[0].Role != types.RoleUser || window[1].Role != types.RoleAssistant {
		t.Errorf("roles = %v, %v", window[0].Role, window[1].Role)
	}
	if window[1].Content != GreetingReply {
		t.Errorf("assistant turn = %q", window[1].Content)
	}
}
