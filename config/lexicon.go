package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon is the fixed vocabulary the text pipeline runs on: capture
// terminators for locality patterns, address cues, policy keyword sets and
// the Spanish→English drug vocabulary. Every entry is stored in normalized
// form (lowercase, no diacritics). The value is immutable after load.
type Lexicon struct {
	// LocalityStopWords terminate the <X> capture in locality patterns.
	LocalityStopWords []string `yaml:"locality_stop_words"`

	// TemporalWords mark a "today" query and are excluded from captures.
	TemporalWords []string `yaml:"temporal_words"`

	// Weekdays in Spanish, Monday first.
	Weekdays []string `yaml:"weekdays"`

	// AddressKeywords switch the extractor into address mode.
	AddressKeywords []string `yaml:"address_keywords"`

	// AddressStopWords are dropped from the address token set.
	AddressStopWords []string `yaml:"address_stop_words"`

	// OffTopicTerms short-circuit the scope classifier to off-topic.
	OffTopicTerms []string `yaml:"off_topic_terms"`

	// DosageTriggers block a turn as a dosage/prescription request.
	DosageTriggers []string `yaml:"dosage_triggers"`

	// SafeMarkers identify purely informational drug questions.
	SafeMarkers []string `yaml:"safe_markers"`

	// ClinicalMarkers veto SafeMarkers when both appear.
	ClinicalMarkers []string `yaml:"clinical_markers"`

	// ByNameClues force by-name mode in the drug handler.
	ByNameClues []string `yaml:"by_name_clues"`

	// QueryStopWords are ignored when picking the target drug token.
	QueryStopWords []string `yaml:"query_stop_words"`

	// DrugAliases maps Spanish drug/class terms to English index vocabulary.
	DrugAliases map[string][]string `yaml:"drug_aliases"`
}

// DefaultLexicon returns the built-in vocabulary.
func DefaultLexicon() Lexicon {
	return Lexicon{
		LocalityStopWords: []string{
			"ayer", "manana", "y", "e", "que", "cual", "cuales", "me",
			"puedes", "puede", "podrias", "podria", "dime", "dame", "por",
			"favor", "direccion", "farmacia", "farmacias", "donde", "cerca",
			"cercana", "cercanas", "una", "un", "la", "el", "los", "las",
		},
		TemporalWords: []string{"hoy", "ahora"},
		Weekdays: []string{
			"lunes", "martes", "miercoles", "jueves", "viernes", "sabado", "domingo",
		},
		AddressKeywords: []string{
			"libertador", "bernardo", "higgins", "ohiggins", "avenida",
			"av", "calle", "numero", "nro", "direccion",
		},
		AddressStopWords: []string{
			"que", "farmacia", "farmacias", "hay", "de", "en", "hoy", "se",
			"llama", "la", "el", "cual", "queda", "donde", "ubicada", "es",
		},
		OffTopicTerms: []string{
			"receta de", "cocinar", "cocina", "futbol", "partido de",
			"clima", "pelicula", "chiste", "horoscopo", "loteria",
		},
		DosageTriggers: []string{
			"puedo tomar", "que puedo tomar", "me recomiendas",
			"que me recomiendas", "dosis", "posologia", "cada cuanto",
			"me hara bien", "me hace bien", "debo tomar", "deberia tomar",
			"cuanto tomar", "recetame",
		},
		SafeMarkers: []string{
			"que me puedes", "me puedes decir", "informacion de",
			"informacion sobre", "que es ", "efectos adversos",
			"contraindicaciones", "mecanismo de accion", "indicaciones",
		},
		ClinicalMarkers: []string{"tomar", "dosis", "posologia", "cada cuanto"},
		ByNameClues: []string{
			"para que sirve", "que es ", "informacion sobre",
			"efectos adversos de", "contraindicaciones de",
			"mecanismo de accion de",
		},
		QueryStopWords: []string{
			"para", "que", "sirve", "de", "la", "del", "los", "las", "un",
			"una", "unos", "unas", "el", "al", "en", "por", "con", "y", "o",
			"u", "me", "dime", "dame", "podrias", "podria", "puedes",
			"puede", "porfa", "favor", "como", "cual", "cuales",
			"informacion", "sobre", "uso", "utilidad", "tengo", "necesito",
			"quiero", "es", "hay", "medicamento", "medicamentos", "farmaco",
			"farmacos", "existen",
		},
		DrugAliases: map[string][]string{
			"paracetamol":       {"paracetamol", "acetaminophen"},
			"ibuprofeno":        {"ibuprofen"},
			"amoxicilina":       {"amoxicillin"},
			"omeprazol":         {"omeprazole"},
			"morfina":           {"morphine"},
			"aspirina":          {"aspirin", "acetylsalicylic acid"},
			"loratadina":        {"loratadine"},
			"metformina":        {"metformin"},
			"antibioticos":      {"antibiotic", "antibiotics", "antibacterial"},
			"analgesicos":       {"analgesic", "analgesics", "painkiller"},
			"antiinflamatorios": {"anti-inflammatory", "nsaid"},
			"antidepresivos":    {"antidepressant", "antidepressants"},
			"antihistaminicos":  {"antihistamine", "antihistamines"},
			"anticonceptivos":   {"contraceptive", "contraceptives"},
			"asma":              {"asthma"},
			"dolor":             {"pain"},
			"fiebre":            {"fever"},
			"hipertension":      {"hypertension", "blood pressure"},
			"diabetes":          {"diabetes"},
			"embarazo":          {"pregnancy"},
			"oral":              {"oral"},
			"intravenosa":       {"intravenous"},
		},
	}
}

// LoadLexicon returns the default lexicon, overridden by the YAML file at
// path when given. Environment references (${VAR}) in the file are
// expanded before parsing, like the agent config loader does.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return lex, fmt.Errorf("read lexicon file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &lex); err != nil {
		return lex, fmt.Errorf("parse lexicon file: %w", err)
	}
	return lex, nil
}
