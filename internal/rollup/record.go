package rollup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Raw is an upstream record as decoded from JSON. No field is required and
// every access is defensive: upstream exports disagree on field names for
// dates, amounts and representatives, and some wrap scalars in objects.
type Raw = map[string]any

// Record is the canonical shape the aggregation layer works with. Every raw
// record normalizes to exactly one Record; malformed fields degrade to zero
// values instead of failing.
type Record struct {
	Date     string
	Rep      Rep
	Amount   float64
	Deposit  float64
	Source   string
	OrderID  string
	OrderRef string
}

// Fallback chains, highest priority first. The order is load-bearing:
// callers rely on it to attribute identical records identically across
// upstream shape variants.
var (
	dateFields    = []string{"date_utc", "created_at", "created_at_utc", "last_updated_at", "fulfillment_date_utc", "date"}
	amountFields  = []string{"adjusted_order_total", "order_total_after_labour", "order_total_net", "order_total", "orderTotal", "total", "amount"}
	depositFields = []string{"amountPaid", "amount_paid", "deposit"}
	orderIDFields = []string{"orderId", "order_id", "id"}
	orderRefs     = []string{"orderNumber", "invoice", "quoteNumber"}
)

// Normalize maps a heterogeneous raw record into the canonical Record shape.
// It is total: missing or malformed fields become empty strings or zeros.
func Normalize(raw Raw) Record {
	return Record{
		Date:     firstString(raw, dateFields),
		Rep:      ResolveRep(raw),
		Amount:   firstNumber(raw, amountFields),
		Deposit:  firstNumber(raw, depositFields),
		Source:   ClassifySource(raw),
		OrderID:  firstString(raw, orderIDFields),
		OrderRef: firstString(raw, orderRefs),
	}
}

// NormalizeAll maps a batch of raw records.
func NormalizeAll(raws []Raw) []Record {
	out := make([]Record, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

// ClassifySource buckets a raw record into one of the closed source tags
// east, west, online or partner, or "" when unknown. Partner wins over
// online, which wins over store region.
func ClassifySource(raw Raw) string {
	tags := strings.ToLower(coerceString(raw["tags"]))
	src := strings.ToLower(strings.TrimSpace(coerceString(raw["source"])))

	if strings.Contains(tags, "partner") || src == "partner" {
		return "partner"
	}
	if raw["is_online"] == true || strings.Contains(tags, "online store") || src == "online" {
		return "online"
	}
	region := strings.ToLower(strings.TrimSpace(coerceString(raw["store_region"])))
	if region == "east" || region == "west" {
		return region
	}
	if src == "east" || src == "west" {
		return src
	}
	return ""
}

// OrderKey returns the identifier used to correlate records that belong to
// the same order: the order id when present, else the order reference.
func (r Record) OrderKey() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.OrderRef
}

// StringField returns the first non-empty coerced string among the named
// fields. Exposed for views that read upstream tables with their own
// column names (e.g. the precomputed rep table).
func StringField(raw Raw, fields ...string) string {
	return firstString(raw, fields)
}

// NumberField returns the coerced number of the first present field.
func NumberField(raw Raw, fields ...string) float64 {
	return firstNumber(raw, fields)
}

func firstString(raw Raw, fields []string) string {
	for _, f := range fields {
		v, ok := raw[f]
		if !ok || v == nil {
			continue
		}
		if s := coerceString(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(raw Raw, fields []string) float64 {
	for _, f := range fields {
		v, ok := raw[f]
		if !ok || v == nil {
			continue
		}
		return coerceNumber(v)
	}
	return 0
}

// coerceString renders an arbitrary JSON value as a string. Wrapped scalars
// expose a "value" sub-field, date-like values format to a ten character
// YYYY-MM-DD, named objects expose "name"; anything else stringifies.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	case map[string]any:
		if inner, ok := val["value"]; ok && inner != nil {
			return coerceString(inner)
		}
		if name, ok := val["name"].(string); ok {
			return name
		}
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// coerceNumber applies numeric coercion; non-finite and unparsable values
// degrade to 0.
func coerceNumber(v any) float64 {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case float32:
		n = float64(val)
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		n = parsed
	case map[string]any:
		if inner, ok := val["value"]; ok {
			return coerceNumber(inner)
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
