package policy

import (
	"strconv"
	"strings"
)

// TranslateSavedQuery maps a stored saved-search dictionary onto a
// property predicate.  The dictionary is schema-free at rest; only the
// keys below are recognized here, everything else is ignored.  Keys
// holding empty or null values are skipped.  When the dictionary did not
// constrain status and the requester is not staff, the catalog fallback
// (status=active) is applied, identical to PropertyScope rule 3.
func TranslateSavedQuery(q map[string]any, requester Principal) Predicate {
	var pr Predicate
	statusApplied := false

	if v, ok := stringValue(q["status"]); ok {
		pr.And("p.status = ?", v)
		statusApplied = true
	}
	if v, ok := stringValue(q["deal_type"]); ok {
		pr.And("p.deal_type = ?", v)
	}
	if vals := numberList(q["rooms"]); len(vals) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",")
		pr.Where = append(pr.Where, "p.rooms IN ("+ph+")")
		pr.Args = append(pr.Args, vals...)
	}
	if v, ok := numberValue(q["price_min"]); ok {
		pr.And("p.price >= ?", v)
	}
	if v, ok := numberValue(q["price_max"]); ok {
		pr.And("p.price <= ?", v)
	}
	if v, ok := numberValue(q["realtor_id"]); ok {
		pr.And("p.realtor_id = ?", v)
	}
	if v, ok := stringValue(q["district"]); ok {
		pr.And("p.district = ?", v)
	}
	if v, ok := stringValue(q["city"]); ok {
		pr.And("p.city = ?", v)
	}
	if truthy(q["mine"]) {
		pr.And("p.realtor_id = ?", requester.ID)
	}
	if !statusApplied && !requester.IsStaff() {
		pr.And("p.status = ?", StatusActive)
	}
	return pr
}

// stringValue extracts a non-empty string from a decoded JSON value.
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

// numberValue accepts JSON numbers and numeric strings.
func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		if t = strings.TrimSpace(t); t != "" {
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// numberList normalizes rooms values: a single number, a JSON array or a
// comma-separated string all become a flat argument list.
func numberList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if n, ok := numberValue(e); ok {
				out = append(out, n)
			}
		}
		return out
	case string:
		var out []any
		for _, part := range strings.Split(t, ",") {
			if n, ok := numberValue(part); ok {
				out = append(out, n)
			}
		}
		return out
	default:
		if n, ok := numberValue(v); ok {
			return []any{n}
		}
		return nil
	}
}

// truthy interprets the loose boolean-like values a stored dictionary or
// a query string can carry.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

// Truthy reports whether a raw query-string value such as mine=true
// should be treated as set.  Exported for handlers parsing the same
// boolean-like convention from request parameters.
func Truthy(s string) bool { return truthy(s) }
