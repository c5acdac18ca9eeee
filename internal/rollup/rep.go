package rollup

import "strings"

// UnassignedLabel is the display name for records that could not be
// attributed to a representative.
const UnassignedLabel = "Unassigned"

// Rep identifies the representative a record is attributed to. The zero
// value is the unassigned case; the sentinel string only exists at the
// display boundary.
type Rep struct {
	Name     string
	Assigned bool
}

// AssignedRep wraps a resolved representative name.
func AssignedRep(name string) Rep {
	return Rep{Name: name, Assigned: true}
}

// DisplayName renders the representative for presentation.
func (r Rep) DisplayName() string {
	if !r.Assigned {
		return UnassignedLabel
	}
	return r.Name
}

// Key returns the case-folded identity used for cross-dataset joins, e.g.
// merging draft counts into the rep table.
func (r Rep) Key() string {
	if !r.Assigned {
		return "unassigned"
	}
	return strings.ToLower(r.Name)
}

// Candidate source fields for the representative, in priority order.
// Callers depend on this exact order to deduplicate representative identity
// across inconsistent upstream record shapes.
var repFieldChain = [][]string{
	{"salesperson", "rep", "salesPerson", "sales_person"},
	{"owner"},
	{"processed_by"},
	{"cashier"},
	{"staff_name", "staff"},
	{"user_name", "user"},
	{"created_by_name", "created_by"},
}

// ResolveRep walks the candidate chain and returns the first non-empty,
// trimmed name. Records with no resolvable candidate are unassigned.
func ResolveRep(raw Raw) Rep {
	for _, group := range repFieldChain {
		for _, field := range group {
			v, ok := raw[field]
			if !ok || v == nil {
				continue
			}
			name := strings.TrimSpace(coerceString(v))
			if name == "" || name == "—" || strings.EqualFold(name, UnassignedLabel) {
				continue
			}
			return AssignedRep(name)
		}
	}
	return Rep{}
}

// BackfillByOrder attributes unassigned records that share an order key with
// a record that did resolve to a real name. One pass: build the order-key
// index from resolvable records first, then backfill from it.
func BackfillByOrder(records []Record) {
	byOrder := make(map[string]Rep)
	for _, r := range records {
		if !r.Rep.Assigned {
			continue
		}
		key := r.OrderKey()
		if key == "" {
			continue
		}
		if _, seen := byOrder[key]; !seen {
			byOrder[key] = r.Rep
		}
	}
	for i := range records {
		if records[i].Rep.Assigned {
			continue
		}
		key := records[i].OrderKey()
		if key == "" {
			continue
		}
		if rep, ok := byOrder[key]; ok {
			records[i].Rep = rep
		}
	}
}
