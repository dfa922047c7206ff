package agent

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/farmachile/medagent/match"
	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

// handlerResult is one slot in the per-turn result arena. Handlers fill
// their own slot only; the merge reads slots in the fixed label order.
type handlerResult struct {
	ran      bool
	fault    error
	records  []types.LocationRecord
	fallback bool // on-duty records shown under the general-locations label

	drugs      []types.DrugRecord
	drugNames  []string
	listTarget string
	notFound   bool
	drugTarget string

	greeting string
}

// runHandlers executes the requested handlers concurrently and returns the
// arena indexed by types.HandlerOrder. One handler's failure lands in its
// own slot as a fault; the others are unaffected.
func (a *Agent) runHandlers(ctx context.Context, labels []types.Label, text string, ents types.Entities, filters map[string]string) []handlerResult {
	results := make([]handlerResult, len(types.HandlerOrder))
	slot := map[types.Label]int{}
	for i, l := range types.HandlerOrder {
		slot[l] = i
	}

	var wg sync.WaitGroup
	for _, label := range labels {
		wg.Add(1)
		go func(label types.Label) {
			defer wg.Done()
			res := &results[slot[label]]
			res.ran = true
			switch label {
			case types.LabelLocations:
				a.handleLocations(ctx, res, ents, filters)
			case types.LabelOnDuty:
				a.handleOnDuty(ctx, res, ents, filters)
			case types.LabelDrugInfo:
				a.handleDrugInfo(ctx, res, text)
			case types.LabelGreeting:
				res.greeting = GreetingReply
			}
		}(label)
	}
	wg.Wait()
	return results
}

func (a *Agent) handleLocations(ctx context.Context, res *handlerResult, ents types.Entities, filters map[string]string) {
	records, err := a.sources.Locales.FetchAll(ctx)
	if err != nil {
		a.logger.Printf("[locations] fetch failed: %v", err)
		res.fault = err
		return
	}
	rows := match.Filter(records, ents)
	rows = applyRouterFilters(rows, filters)

	// Some comunas list nothing in the general endpoint while the on-duty
	// endpoint knows them. One cross-domain retry, locality only.
	if len(rows) == 0 && (ents.Locality != "" || !a.fallbackNeedsLocality) {
		fallbackRows, err := a.sources.OnDuty.FetchAll(ctx)
		if err == nil {
			fallbackRows = match.Filter(fallbackRows, types.Entities{Locality: ents.Locality})
			if len(fallbackRows) > 0 {
				rows = fallbackRows
				res.fallback = true
			}
		} else {
			a.logger.Printf("[locations] on-duty fallback fetch failed: %v", err)
		}
	}
	res.records = capRecords(rows, a.maxResults)
}

func (a *Agent) handleOnDuty(ctx context.Context, res *handlerResult, ents types.Entities, filters map[string]string) {
	records, err := a.sources.OnDuty.FetchAll(ctx)
	if err != nil {
		a.logger.Printf("[on_duty] fetch failed: %v", err)
		res.fault = err
		return
	}
	rows := match.Filter(records, ents)
	rows = applyRouterFilters(rows, filters)
	if ents.Date != "" {
		rows = match.ByField(rows, types.FieldDate, ents.Date)
	}
	if ents.Day != "" {
		rows = match.ByField(rows, types.FieldDay, ents.Day)
	}
	res.records = capRecords(rows, a.maxResults)
}

var nonDigitRe = regexp.MustCompile(`\D`)

// applyRouterFilters narrows rows by the explicit fields the router pulled
// from the text. Name and sub-locality match by containment, phone by
// digits, hours and fk ids exactly.
func applyRouterFilters(rows []types.LocationRecord, filters map[string]string) []types.LocationRecord {
	if localidad := filters[types.FilterLocalidad]; localidad != "" {
		rows = keepContains(rows, types.FieldSubLocality, localidad)
	}
	if name := filters[types.FilterLocalNombre]; name != "" {
		rows = keepContains(rows, types.FieldName, name)
	}
	if tel := filters[types.FilterTelefono]; tel != "" {
		digits := nonDigitRe.ReplaceAllString(tel, "")
		if digits != "" {
			var out []types.LocationRecord
			for _, r := range rows {
				if strings.Contains(nonDigitRe.ReplaceAllString(r.Phone(), ""), digits) {
					out = append(out, r)
				}
			}
			rows = out
		}
	}
	for _, key := range []string{types.FilterHoraApertura, types.FilterHoraCierre} {
		if v := filters[key]; v != "" {
			rows = match.ByField(rows, key, v)
		}
	}
	for _, key := range []string{types.FilterFkRegion, types.FilterFkComuna, types.FilterFkLocalidad} {
		if v := filters[key]; v != "" {
			var out []types.LocationRecord
			for _, r := range rows {
				if r[key] == v {
					out = append(out, r)
				}
			}
			rows = out
		}
	}
	return rows
}

func keepContains(rows []types.LocationRecord, field, value string) []types.LocationRecord {
	want := normalize.Text(value)
	var out []types.LocationRecord
	for _, r := range rows {
		if strings.Contains(normalize.Text(r[field]), want) {
			out = append(out, r)
		}
	}
	return out
}

func capRecords(rows []types.LocationRecord, limit int) []types.LocationRecord {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
