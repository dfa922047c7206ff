package nlu

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/farmachile/medagent/types"
)

// fakeChat returns a canned reply and records the last prompt pair.
type fakeChat struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeChat) Chat(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestExtractFirstJSONObject(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Claro, aquí tienes: {"a":{"b":2}} espero que sirva`, `{"a":{"b":2}}`},
		{`no json here`, `no json here`},
	}
	for _, tt := range tests {
		if got := extractFirstJSONObject(tt.input); got != tt.expected {
			t.Errorf("extractFirstJSONObject(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestLLMScopeClassify(t *testing.T) {
	fc := &fakeChat{reply: `{"in_scope": true}`}
	s := NewLLMScope(fc)
	in, err := s.ClassifyScope(context.Background(), "farmacias en lebu")
	if err != nil || !in {
		t.Fatalf("got in=%v err=%v", in, err)
	}

	fc.reply = "El mensaje está fuera de tema.\n{\"in_scope\": false}"
	in, err = s.ClassifyScope(context.Background(), "receta de lentejas")
	if err != nil || in {
		t.Fatalf("got in=%v err=%v", in, err)
	}

	fc.err = errors.New("boom")
	if _, err := s.ClassifyScope(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLLMDosageClassify(t *testing.T) {
	fc := &fakeChat{reply: `{"blocked": true, "policy_message": "Lo siento, pero no puedo ofrecer recomendaciones médicas. Consulta a un profesional."}`}
	d := NewLLMDosage(fc)
	v, err := d.ClassifyDosage(context.Background(), "¿cuánto paracetamol puedo tomar?")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Blocked || !strings.HasPrefix(v.Message, "Lo siento, pero no puedo ofrecer recomendaciones médicas.") {
		t.Fatalf("got %+v", v)
	}

	fc.reply = `{"blocked": false}`
	v, err = d.ClassifyDosage(context.Background(), "información sobre ibuprofeno")
	if err != nil || v.Blocked {
		t.Fatalf("got %+v err=%v", v, err)
	}
}

func TestLLMRouterRoute(t *testing.T) {
	fc := &fakeChat{reply: `{"routes": ["farmacias", "turnos"], "comuna": "Lebu", "fecha": null}`}
	r, err := NewLLMRouter(fc)
	if err != nil {
		t.Fatal(err)
	}
	decision, err := r.Route(context.Background(), []types.Turn{
		{Role: types.RoleUser, Content: "farmacias y turnos en lebu"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []types.Label{types.LabelLocations, types.LabelOnDuty}
	if !reflect.DeepEqual(decision.Labels, want) {
		t.Errorf("Labels = %v, expected %v", decision.Labels, want)
	}
	if decision.Filters[types.FilterComuna] != "Lebu" {
		t.Errorf("Filters = %v", decision.Filters)
	}
	if _, ok := decision.Filters[types.FilterFecha]; ok {
		t.Error("null filter must be dropped")
	}
}

func TestLLMRouterRejectsUnknownRoute(t *testing.T) {
	fc := &fakeChat{reply: `{"routes": ["clima"]}`}
	r, err := NewLLMRouter(fc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Route(context.Background(), nil); err == nil {
		t.Fatal("expected schema violation error")
	}
}

func TestLLMRouterDedupesRoutes(t *testing.T) {
	fc := &fakeChat{reply: `{"routes": ["meds", "meds"]}`}
	r, _ := NewLLMRouter(fc)
	decision, err := r.Route(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(decision.Labels) != 1 || decision.Labels[0] != types.LabelDrugInfo {
		t.Fatalf("Labels = %v", decision.Labels)
	}
}

func TestRenderWindow(t *testing.T) {
	got := renderWindow([]types.Turn{
		{Role: types.RoleUser, Content: "hola"},
		{Role: types.RoleAssistant, Content: "¡Hola!"},
		{Role: types.RoleUser, Content: "farmacias en lebu"},
	})
	want := "user: hola\nassistant: ¡Hola!\nuser: farmacias en lebu"
	if got != want {
		t.Errorf("renderWindow = %q, expected %q", got, want)
	}
}

func TestLLMDrugIntentInterpret(t *testing.T) {
	fc := &fakeChat{reply: `{"mode": "by_name", "target_es": "morfina"}`}
	d := NewLLMDrugIntent(fc)
	q, err := d.Interpret(context.Background(), "¿para qué sirve la morfina?")
	if err != nil {
		t.Fatal(err)
	}
	if q.Mode != types.DrugByName || q.Target != "morfina" || q.Field != "" {
		t.Fatalf("got %+v", q)
	}

	fc.reply = `{"mode": "list_by_class", "target_es": "antibióticos"}`
	q, err = d.Interpret(context.Background(), "¿qué antibióticos existen?")
	if err != nil {
		t.Fatal(err)
	}
	if q.Mode != types.DrugListByField || q.Field != "Drug Class" {
		t.Fatalf("got %+v", q)
	}

	fc.reply = `{"mode": "diagnose"}`
	if _, err := d.Interpret(context.Background(), "x"); err == nil {
		t.Fatal("expected unknown mode error")
	}
}
