package agent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// route resolves the turn to an ordered label set plus router filters.
// A failing or invalid router never reaches the user: invalid labels fall
// back to the drug-info handler with the raw query text, a dead router
// falls back to keyword routing.
func (a *Agent) route(ctx context.Context, window []types.Turn, text string) ([]types.Label, map[string]string) {
	if a.caps.Router == nil {
		return a.heuristicRoute(text), nil
	}
	decision, err := a.caps.Router.Route(ctx, window)
	if err != nil {
		a.logger.Printf("[route] router failed, keyword fallback: %v", err)
		return a.heuristicRoute(text), nil
	}
	labels, err := orderLabels(decision.Labels)
	if err != nil {
		a.logger.Printf("[route] %v, falling back to drug info", err)
		return []types.Label{types.LabelDrugInfo}, decision.Filters
	}
	return labels, decision.Filters
}

// orderLabels validates the closed label set and fixes execution order so
// combined replies stay deterministic.
func orderLabels(labels []types.Label) ([]types.Label, error) {
	if len(labels) == 0 {
		return nil, types.NewInvalidRouteError("")
	}
	requested := map[types.Label]struct{}{}
	for _, l := range labels {
		if !l.Valid() {
			return nil, types.NewInvalidRouteError(string(l))
		}
		requested[l] = struct{}{}
	}
	var ordered []types.Label
	for _, l := range types.HandlerOrder {
		if _, ok := requested[l]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

var greetingWords = []string{"hola", "buenos dias", "buenas tardes", "buenas noches", "como estas"}

func (a *Agent) heuristicRoute(text string) []types.Label {
	norm := normalize.Text(text)
	var labels []types.Label
	if strings.Contains(norm, "turno") {
		labels = append(labels, types.LabelOnDuty)
	}
	if strings.Contains(norm, "farmacia") && !strings.Contains(norm, "turno") {
		labels = append(labels, types.LabelLocations)
	}
	if len(labels) == 0 && containsAny(norm, greetingWords) {
		return []types.Label{types.LabelGreeting}
	}
	if len(labels) == 0 {
		return []types.Label{types.LabelDrugInfo}
	}
	ordered, _ := orderLabels(labels)
	return ordered
}

// entities merges extracted entities with the router's explicit filters.
// Router fields win over pattern extraction; relative dates never become
// exact-match filters.
func (a *Agent) entities(text string, filters map[string]string) types.Entities {
	ents := a.extractor.Extract(text)

	if comuna := filters[types.FilterComuna]; comuna != "" {
		ents.Locality = normalize.Text(comuna)
	}
	if dir := filters[types.FilterDireccion]; dir != "" {
		if tokens := a.extractor.SegmentTokens(dir); len(tokens) > 0 {
			ents.AddressTokens = tokens
		}
	}
	if fecha := filters[types.FilterFecha]; fecha != "" {
		switch {
		case isoDateRe.MatchString(fecha):
			ents.Date = fecha
		case a.isTemporal(normalize.Text(fecha)):
			ents.Day = a.weekdayToday()
		}
	}
	if dia := filters[types.FilterDia]; dia != "" {
		norm := normalize.Text(dia)
		if a.isTemporal(norm) {
			ents.Day = a.weekdayToday()
		} else {
			ents.Day = norm
		}
	}
	return ents
}

func (a *Agent) weekdayToday() string {
	return a.lex.Weekdays[(int(time.Now().Weekday())+6)%7]
}

func (a *Agent) isTemporal(norm string) bool {
	for _, w := range a.lex.TemporalWords {
		if norm == w {
			return true
		}
	}
	return false
}
