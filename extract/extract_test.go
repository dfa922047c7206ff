package extract

import (
	"reflect"
	"testing"
	"time"

	"github.com/farmachile/medagent/config"
)

func newTestExtractor() *Extractor {
	return New(config.DefaultLexicon())
}

func TestExtractLocality(t *testing.T) {
	ex := newTestExtractor()

	tests := []struct {
		input    string
		locality string
	}{
		{"que farmacias hay en traiguen hoy", "traiguen"},
		{"farmacias en la comuna de traiguen", "traiguen"},
		{"comuna de lebu", "lebu"},
		{"farmacias de lebu", "lebu"},
		{"farmacias de la comuna de arauco", "arauco"},
		{"farmacias en santiago centro", "santiago centro"},
		{"¿Hay farmacias en Ñuñoa ahora?", "nunoa"},
		{"necesito un analgesico", ""},
		{"", ""},
	}

	for _, tt := range tests {
		ents := ex.Extract(tt.input)
		if ents.Locality != tt.locality {
			t.Errorf("Extract(%q).Locality = %q, expected %q", tt.input, ents.Locality, tt.locality)
		}
	}
}

func TestExtractLocalityPatternOrder(t *testing.T) {
	ex := newTestExtractor()
	// "en <X>" is declared first and must win over "farmacias de <X>".
	ents := ex.Extract("farmacias de turno en lebu")
	if ents.Locality != "lebu" {
		t.Errorf("Locality = %q, expected %q", ents.Locality, "lebu")
	}
}

func TestExtractDay(t *testing.T) {
	ex := newTestExtractor()
	lex := config.DefaultLexicon()
	want := lex.Weekdays[(int(time.Now().Weekday())+6)%7]

	ents := ex.Extract("farmacias de turno en lebu hoy")
	if ents.Day != want {
		t.Errorf("Day = %q, expected %q", ents.Day, want)
	}
	if ents.Locality != "lebu" {
		t.Errorf("Locality = %q, expected %q (temporal word must not leak into capture)", ents.Locality, "lebu")
	}

	if ents := ex.Extract("farmacias en arauco"); ents.Day != "" {
		t.Errorf("Day = %q, expected empty without temporal words", ents.Day)
	}
}

func TestExtractDate(t *testing.T) {
	ex := newTestExtractor()

	if ents := ex.Extract("farmacias de turno el 2026-09-01"); ents.Date != "2026-09-01" {
		t.Errorf("Date = %q, expected %q", ents.Date, "2026-09-01")
	}
	// Ambiguous day-first forms are left absent, never guessed.
	if ents := ex.Extract("farmacias de turno el 01-09-2026"); ents.Date != "" {
		t.Errorf("Date = %q, expected empty for ambiguous format", ents.Date)
	}
}

func TestExtractAddressMode(t *testing.T) {
	ex := newTestExtractor()

	ents := ex.Extract("que farmacia queda en avenida libertador bernardo ohiggins 784")
	if !ents.AddressMode() {
		t.Fatal("expected address mode for street query with number")
	}
	want := []string{"avenida", "libertador", "bernardo", "ohiggins", "784"}
	if !reflect.DeepEqual(ents.AddressTokens, want) {
		t.Errorf("AddressTokens = %v, expected %v", ents.AddressTokens, want)
	}

	// Keyword alone is enough, no digits needed.
	ents = ex.Extract("farmacia en calle prat")
	if !ents.AddressMode() {
		t.Fatal("expected address mode for street keyword")
	}

	// Plain locality queries never enter address mode.
	ents = ex.Extract("farmacias en lebu hoy")
	if ents.AddressMode() {
		t.Errorf("unexpected address mode, tokens=%v", ents.AddressTokens)
	}
}

func TestExtractAddressTokensExcludeLocality(t *testing.T) {
	ex := newTestExtractor()
	// Locality capture consumes "lebu"; the address token set must not
	// contain it again.
	ents := ex.Extract("farmacia en lebu direccion los tilos 45")
	for _, tok := range ents.AddressTokens {
		if tok == ents.Locality {
			t.Errorf("locality token %q leaked into address tokens %v", tok, ents.AddressTokens)
		}
	}
}

func TestExtractEmptyIsValid(t *testing.T) {
	ex := newTestExtractor()
	ents := ex.Extract("hola buenos dias")
	if ents.Locality != "" || ents.AddressMode() || ents.Day != "" || ents.Date != "" {
		t.Errorf("expected empty entities, got %+v", ents)
	}
}
