package kb

import (
	"strings"

	"vitrina/internal/config"
	"vitrina/internal/domain/models"
)

// rawDataSeparator joins raw_data fragments accumulated across updates.
const rawDataSeparator = "\n---\n"

// Merge combines an existing knowledge base with newly extracted data.
// Both inputs are expected in canonical shape (run Normalize first).
//
// Per-field policy:
//   - services: additive by case-insensitive name; existing entries are
//     never overwritten
//   - prices, contacts (mapping form): shallow merge, new wins on collision
//   - contacts (either side a string): new replaces old wholesale
//   - faq: concatenation, duplicates accepted
//   - scalars (about, business_type, website, ...): new wins when non-empty
//   - raw_data: append-only audit trail, joined with a separator and capped
//     at config.MaxRawDataBytes (trimmed from the front, keeping the newest
//     fragments)
//
// Merge is not commutative: for additive fields the receiver's entries win
// ties. Re-merging the same `update` is idempotent for every field except
// raw_data, whose concatenation intentionally is not.
//
// The returned knowledge base is a fresh copy; `old` is never mutated.
func Merge(old, update models.KnowledgeBase) models.KnowledgeBase {
	merged := old.Clone()

	for key, newVal := range update {
		switch key {
		case models.KeyServices:
			merged[key] = mergeServices(merged[key], newVal)
		case models.KeyPrices:
			merged[key] = mergeStringMaps(merged[key], newVal)
		case models.KeyContacts:
			merged[key] = mergeContacts(merged[key], newVal)
		case models.KeyFAQ:
			merged[key] = mergeLists(merged[key], newVal)
		case models.KeyRawData:
			merged[key] = appendRawData(merged[key], newVal)
		default:
			if s, ok := newVal.(string); ok {
				if s != "" {
					merged[key] = s
				}
				continue
			}
			if newVal != nil {
				merged[key] = newVal
			}
		}
	}

	return merged
}

// mergeServices appends entries from new whose name (case-insensitive) is
// not already present. Existing entries keep their exact bytes.
func mergeServices(oldVal, newVal any) []models.ServiceEntry {
	existing := normalizeServices(oldVal)
	incoming := normalizeServices(newVal)

	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[strings.ToLower(e.Name)] = true
	}

	merged := make([]models.ServiceEntry, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for _, e := range incoming {
		key := strings.ToLower(e.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, e)
	}
	return merged
}

func mergeStringMaps(oldVal, newVal any) map[string]string {
	merged := normalizePrices(oldVal)
	for k, v := range normalizePrices(newVal) {
		merged[k] = v
	}
	return merged
}

// mergeContacts shallow-merges when both sides are mappings; a string on
// either side means new replaces old wholesale.
func mergeContacts(oldVal, newVal any) any {
	oldMap, oldIsMap := asStringMap(oldVal)
	newMap, newIsMap := asStringMap(newVal)
	if !oldIsMap || !newIsMap {
		return newVal
	}
	merged := make(map[string]any, len(oldMap)+len(newMap))
	for k, v := range oldMap {
		merged[k] = v
	}
	for k, v := range newMap {
		merged[k] = v
	}
	return merged
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func mergeLists(oldVal, newVal any) []any {
	var merged []any
	merged = append(merged, asList(oldVal)...)
	merged = append(merged, asList(newVal)...)
	return merged
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case nil:
		return nil
	default:
		return []any{l}
	}
}

// appendRawData concatenates unparseable fragments, never overwriting. The
// audit trail is capped: when it outgrows the budget, the oldest text is
// trimmed from the front.
func appendRawData(oldVal, newVal any) string {
	oldStr := models.Stringify(oldVal)
	newStr := models.Stringify(newVal)

	var combined string
	switch {
	case oldStr == "":
		combined = newStr
	case newStr == "":
		combined = oldStr
	default:
		combined = oldStr + rawDataSeparator + newStr
	}

	if len(combined) > config.MaxRawDataBytes {
		combined = combined[len(combined)-config.MaxRawDataBytes:]
	}
	return combined
}
