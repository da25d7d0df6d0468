package integration

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bookstore/backend/internal/domain/catalog"
	"github.com/bookstore/backend/internal/domain/integration"
	"github.com/bookstore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// ErrInvalidPrice is raised when a price entry carries a non-numeric value
var ErrInvalidPrice = shared.NewValidationError("ERP price is not a valid number")

// PriceInfo is the result of price extraction
type PriceInfo struct {
	Value    decimal.Decimal
	Currency string
}

// ExtractPrice picks the price entry tagged with channel, or the first entry.
// It returns nil when no price is present.
func ExtractPrice(prices any, channel string) (*PriceInfo, error) {
	entries, ok := prices.([]any)
	if !ok || len(entries) == 0 {
		return nil, nil
	}

	var chosen integration.Payload
	for _, raw := range entries {
		entry, ok := integration.AsObject(raw)
		if !ok {
			continue
		}
		if marketplace, ok := entry["marketplace"].(string); ok && marketplace == channel {
			chosen = entry
			break
		}
		if chosen == nil {
			chosen = entry
		}
	}
	if chosen == nil {
		return nil, nil
	}

	raw, ok := chosen["price"]
	if !ok || raw == nil {
		return nil, nil
	}
	value, err := parseDecimal(raw)
	if err != nil {
		return nil, ErrInvalidPrice
	}
	currency, _ := catalog.CleanText(chosen["currency_code"])
	return &PriceInfo{Value: value, Currency: currency}, nil
}

// ExtractStock computes the available quantity from {total, reserved}.
// ok is false when total is missing or not an integer.
func ExtractStock(stock any) (qty int, ok bool) {
	entry, isObject := integration.AsObject(stock)
	if !isObject {
		return 0, false
	}
	total, ok := parseInt(entry["total"])
	if !ok {
		return 0, false
	}
	reserved, ok := parseInt(entry["reserved"])
	if !ok {
		reserved = 0
	}
	available := total - reserved
	if available < 0 {
		available = 0
	}
	return available, true
}

// ExtractImages keeps entries with a URL sorted by position and picks the
// primary image.
func ExtractImages(images any) ([]catalog.ExternalImage, string) {
	entries, ok := images.([]any)
	if !ok {
		return []catalog.ExternalImage{}, ""
	}

	cleaned := make([]catalog.ExternalImage, 0, len(entries))
	mainURL := ""
	for _, raw := range entries {
		entry, ok := integration.AsObject(raw)
		if !ok {
			continue
		}
		url, ok := catalog.CleanText(entry["url"])
		if !ok {
			continue
		}
		rawPosition, found := entry["order"]
		if !found {
			rawPosition = entry["position"]
		}
		position, ok := parseInt(rawPosition)
		if !ok {
			position = 0
		}
		if mainURL == "" && truthy(entry["is_main"]) {
			mainURL = url
		}
		cleaned = append(cleaned, catalog.ExternalImage{URL: url, Position: position})
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Position < cleaned[j].Position
	})
	if mainURL == "" && len(cleaned) > 0 {
		mainURL = cleaned[0].URL
	}
	return cleaned, mainURL
}

// ResolveCategoryGenre picks a category and genre name from a flat list of
// {id, name, parent_id} entries. The first leaf is preferred; with a
// resolvable parent the parent becomes the category and the leaf the genre.
func ResolveCategoryGenre(categories any) (category, genre string) {
	entries, ok := categories.([]any)
	if !ok || len(entries) == 0 {
		return "", ""
	}

	byID := make(map[string]integration.Payload)
	order := make([]string, 0, len(entries))
	parents := make(map[string]struct{})
	for _, raw := range entries {
		entry, ok := integration.AsObject(raw)
		if !ok {
			continue
		}
		id, ok := catalog.CleanText(entry["id"])
		if !ok {
			continue
		}
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = entry
		if parentID, ok := catalog.CleanText(entry["parent_id"]); ok {
			parents[parentID] = struct{}{}
		}
	}
	if len(order) == 0 {
		return "", ""
	}

	chosenID := order[0]
	for _, id := range order {
		if _, isParent := parents[id]; !isParent {
			chosenID = id
			break
		}
	}
	chosen := byID[chosenID]
	chosenName, _ := catalog.CleanText(chosen["name"])

	if parentID, ok := catalog.CleanText(chosen["parent_id"]); ok {
		if parent, found := byID[parentID]; found {
			parentName, _ := catalog.CleanText(parent["name"])
			return parentName, chosenName
		}
	}
	return chosenName, ""
}

var paramFolder = cases.Fold()

// ExtractAdditionalParameter returns the value of the first parameter whose
// name matches one of names, compared case-insensitively.
func ExtractAdditionalParameter(parameters any, names ...string) (string, bool) {
	entries, ok := parameters.([]any)
	if !ok {
		return "", false
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[paramFolder.String(n)] = struct{}{}
	}

	for _, raw := range entries {
		param, ok := integration.AsObject(raw)
		if !ok {
			continue
		}
		name, ok := firstText(param, "name", "title", "parameter", "label")
		if !ok {
			continue
		}
		if _, match := wanted[paramFolder.String(name)]; !match {
			continue
		}
		if value, ok := additionalParameterValue(param); ok {
			return value, true
		}
	}
	return "", false
}

func additionalParameterValue(param integration.Payload) (string, bool) {
	if value, ok := firstText(param, "genre", "value", "display_value", "text"); ok {
		return value, true
	}
	values, ok := param["values"].([]any)
	if !ok {
		return "", false
	}
	collected := make([]string, 0, len(values))
	for _, raw := range values {
		var (
			text  string
			found bool
		)
		if obj, isObject := integration.AsObject(raw); isObject {
			text, found = firstText(obj, "value", "name", "title", "text")
		} else {
			text, found = catalog.CleanText(raw)
		}
		if found {
			collected = append(collected, text)
		}
	}
	if len(collected) == 0 {
		return "", false
	}
	return strings.Join(collected, ", "), true
}

// timestampLayouts covers ISO-8601 date-times with a T or space separator,
// optional seconds and fraction, and zones as Z, ±hh:mm, ±hhmm or ±hh, plus
// bare dates
var timestampLayouts = func() []string {
	layouts := make([]string, 0, 17)
	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05", "15:04"} {
			for _, zone := range []string{"Z07:00", "Z0700", "Z07", ""} {
				layouts = append(layouts, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return append(layouts, "2006-01-02")
}()

// ParseTimestamp parses an ISO-8601 date-time or date. Naive values are taken
// as UTC.
func ParseTimestamp(raw any) (time.Time, bool) {
	s, ok := catalog.CleanText(raw)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t as UTC ISO-8601 with a Z suffix
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}

// ---------------------------------------------------------------------------
// scalar helpers
// ---------------------------------------------------------------------------

func firstText(obj integration.Payload, keys ...string) (string, bool) {
	for _, key := range keys {
		if text, ok := catalog.CleanText(obj[key]); ok {
			return text, true
		}
	}
	return "", false
}

// parseInt accepts integers, numbers with a fraction (truncated toward zero)
// and integer strings
func parseInt(v any) (int, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return truncFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return truncFloat(f)
	}
	return parseIntText(v)
}

// parseIntText accepts only values whose text is an integer, so 1999.0 is
// rejected
func parseIntText(v any) (int, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	s, ok := catalog.CleanText(v)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func truncFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func parseDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	}
	return decimal.Decimal{}, ErrInvalidPrice
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
