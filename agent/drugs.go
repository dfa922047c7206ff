package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

var directDrugRe = regexp.MustCompile(`para\s+que\s+sirve\s+([a-z\s]+)`)

func (a *Agent) handleDrugInfo(ctx context.Context, res *handlerResult, text string) {
	if a.sources.Drugs == nil {
		res.fault = types.NewUpstreamUnavailable("drug_index", nil)
		return
	}
	query := a.interpretDrugQuery(ctx, text)
	if query.Mode == types.DrugListByField {
		a.drugList(ctx, res, query)
		return
	}
	a.drugByName(ctx, res, text)
}

// interpretDrugQuery asks the classifier for the query mode, with two
// guards: a dead classifier defaults to by-name, and by-name clue phrases
// in the text override a list verdict.
func (a *Agent) interpretDrugQuery(ctx context.Context, text string) types.DrugQuery {
	query := types.DrugQuery{Mode: types.DrugByName, Query: text}
	if a.caps.DrugIntent != nil {
		interpreted, err := a.caps.DrugIntent.Interpret(ctx, text)
		if err != nil {
			a.logger.Printf("[drug_info] intent classifier failed, by-name default: %v", err)
		} else {
			query = interpreted
		}
	}
	if containsAny(normalize.Text(text), a.lex.ByNameClues) {
		query.Mode = types.DrugByName
		query.Field = ""
	}
	return query
}

// drugList resolves list-by-field queries. The Spanish pivot term goes
// through the bilingual alias table plus naive singularization before it
// reaches the index vocabulary.
func (a *Agent) drugList(ctx context.Context, res *handlerResult, query types.DrugQuery) {
	pivot := query.Target
	if pivot == "" {
		pivot = query.Query
	}
	pivot = listPivot(pivot)

	variants := a.aliasVariants(pivot)
	primary := pivot
	var synonyms []string
	if len(variants) > 0 {
		primary = variants[0]
		synonyms = variants[1:]
	}

	names, err := a.sources.Drugs.ListByField(ctx, query.Field, primary, synonyms, 100)
	if err != nil {
		a.logger.Printf("[drug_info] list query failed: %v", err)
		res.fault = err
		return
	}
	res.drugNames = names
	res.listTarget = pivot
	res.notFound = len(names) == 0
}

func (a *Agent) drugByName(ctx context.Context, res *handlerResult, text string) {
	hits, err := a.sources.Drugs.Search(ctx, text, 12)
	if err != nil {
		a.logger.Printf("[drug_info] search failed: %v", err)
		res.fault = err
		return
	}

	target := a.targetToken(text)
	res.drugTarget = target
	if target == "" {
		// No usable drug token; try the "para que sirve X" tail directly.
		if m := directDrugRe.FindStringSubmatch(normalize.Text(text)); m != nil {
			direct := strings.TrimSpace(m[1])
			res.drugTarget = direct
			if directHits, err := a.sources.Drugs.Search(ctx, direct, 8); err == nil && len(directHits) > 0 {
				res.drugs = directHits
				return
			}
		}
		res.notFound = true
		return
	}

	tokens := append([]string{target}, a.lex.DrugAliases[target]...)
	filtered := filterHits(hits, tokens)
	if len(filtered) == 0 && len(tokens) > 1 {
		// Re-query by the first alias; the index vocabulary is English.
		if aliasHits, err := a.sources.Drugs.Search(ctx, tokens[1], 5); err == nil {
			filtered = filterHits(aliasHits, tokens[1:])
		}
	}
	if len(filtered) == 0 {
		res.notFound = true
		return
	}
	res.drugs = filtered
}

// targetToken picks the drug candidate: the longest token that is neither
// short nor a stop word.
func (a *Agent) targetToken(text string) string {
	stop := map[string]struct{}{}
	for _, w := range a.lex.QueryStopWords {
		stop[w] = struct{}{}
	}
	var target string
	for _, tok := range normalize.Tokens(text) {
		if len(tok) <= 3 {
			continue
		}
		if _, ok := stop[tok]; ok {
			continue
		}
		if len(tok) > len(target) {
			target = tok
		}
	}
	return target
}

// aliasVariants expands a pivot term into index vocabulary: alias table
// entries for the pivot or its singular form, plus singularized variants,
// order-preserving.
func (a *Agent) aliasVariants(pivot string) []string {
	norm := normalize.Text(pivot)
	aliases, ok := a.lex.DrugAliases[norm]
	if !ok {
		aliases, ok = a.lex.DrugAliases[singularize(norm)]
	}
	if !ok {
		aliases = []string{norm}
	}

	var out []string
	seen := map[string]struct{}{}
	add := func(w string) {
		if w == "" {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for _, al := range aliases {
		add(al)
	}
	for _, al := range aliases {
		add(singularize(al))
	}
	return out
}

// listPivot trims explanation-length pivots down to the last significant
// token.
func listPivot(pivot string) string {
	norm := normalize.Text(pivot)
	var long []string
	for _, tok := range strings.Fields(norm) {
		if len(tok) > 3 {
			long = append(long, tok)
		}
	}
	if len(long) > 8 {
		return long[len(long)-1]
	}
	return norm
}

func singularize(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 3:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "es") && len(w) > 2:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && len(w) > 1:
		return w[:len(w)-1]
	}
	return w
}

func filterHits(hits []types.DrugRecord, tokens []string) []types.DrugRecord {
	var out []types.DrugRecord
	for _, h := range hits {
		name := normalize.Text(h.Name)
		content := normalize.Text(h.Content)
		for _, tok := range tokens {
			if tok != "" && (strings.Contains(name, tok) || strings.Contains(content, tok)) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
