// Package match filters directory records against extracted entities.
// Matching is tiered: exact locality first, partial locality only when the
// exact tier is empty, then conjunctive address refinement. Filtering never
// mutates the input and always preserves upstream order.
package match

import (
	"strings"

	"github.com/farmachile/medagent/normalize"
	"github.com/farmachile/medagent/types"
)

// Filter narrows records by the entities of one turn.
//
// With a locality, the exact tier wins outright; partial containment is a
// fallback, never a widening. Address tokens refine an existing locality
// subset only when the refinement keeps at least one record. Without a
// locality the address tokens filter the full set and an empty result is a
// legitimate answer.
func Filter(records []types.LocationRecord, ents types.Entities) []types.LocationRecord {
	subset := records
	if ents.Locality != "" {
		exact := byLocality(records, ents.Locality, false)
		if len(exact) > 0 {
			subset = exact
		} else {
			subset = byLocality(records, ents.Locality, true)
		}
	}
	if ents.AddressMode() {
		refined := byAddress(subset, ents.AddressTokens)
		if ents.Locality == "" {
			return refined
		}
		if len(refined) > 0 {
			subset = refined
		}
	}
	return subset
}

// ByField keeps records whose field equals value after normalization. Used
// for router post-filters (name, phone, hours, fk ids) and on-duty day/date
// narrowing.
func ByField(records []types.LocationRecord, field, value string) []types.LocationRecord {
	want := normalize.Text(value)
	if want == "" {
		return records
	}
	var out []types.LocationRecord
	for _, r := range records {
		if normalize.Text(r[field]) == want {
			out = append(out, r)
		}
	}
	return out
}

func byLocality(records []types.LocationRecord, locality string, partial bool) []types.LocationRecord {
	var out []types.LocationRecord
	for _, r := range records {
		name := normalize.Text(r.Locality())
		if name == "" {
			name = normalize.Text(r[types.FieldSubLocality])
		}
		if name == "" {
			continue
		}
		if partial {
			if strings.Contains(name, locality) || strings.Contains(locality, name) {
				out = append(out, r)
			}
			continue
		}
		if name == locality {
			out = append(out, r)
		}
	}
	return out
}

func byAddress(records []types.LocationRecord, tokens []string) []types.LocationRecord {
	var out []types.LocationRecord
	for _, r := range records {
		addr := normalize.Text(r.Address())
		if addr == "" {
			continue
		}
		if containsAll(addr, tokens) {
			out = append(out, r)
		}
	}
	return out
}

func containsAll(addr string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(addr, tok) {
			return false
		}
	}
	return true
}
