// Package kb canonicalizes and merges seller-agent knowledge bases. The
// meta-agent emits inconsistent key names (Russian, mixed case) and value
// shapes (services as a map or a list, contacts as a map or a string); after
// Normalize every field has exactly one canonical shape, so downstream code
// never branches on type again.
package kb

import (
	"sort"
	"strings"

	"vitrina/internal/domain/models"
)

// keySynonyms maps lower-cased source-language key variants to canonical
// English keys. Applied to top-level keys only, exactly once.
var keySynonyms = map[string]string{
	"услуги":          models.KeyServices,
	"сервисы":         models.KeyServices,
	"service":         models.KeyServices,
	"цены":            models.KeyPrices,
	"прайс":           models.KeyPrices,
	"стоимость":       models.KeyPrices,
	"о компании":      models.KeyAbout,
	"о нас":           models.KeyAbout,
	"описание":        models.KeyAbout,
	"description":     models.KeyAbout,
	"контакты":        models.KeyContacts,
	"contact":         models.KeyContacts,
	"сайт":            models.KeyWebsite,
	"site":            models.KeyWebsite,
	"url":             models.KeyWebsite,
	"вопросы":         models.KeyFAQ,
	"преимущества":    models.KeyAdvantages,
	"возражения":      models.KeyObjections,
	"тип бизнеса":     models.KeyBusinessType,
	"доп информация":  models.KeyAdditionalInfo,
	"дополнительно":   models.KeyAdditionalInfo,
	"additional info": models.KeyAdditionalInfo,
}

// deniedKeys are prompt-authoring metadata the meta-agent sometimes leaks
// into DATA. They must never reach the stored knowledge base.
var deniedKeys = map[string]bool{
	"communication_style": true,
	"communication style": true,
	"стиль общения":       true,
	"tone":                true,
}

// Normalize canonicalizes raw extracted data into the stable internal
// schema. Idempotent: normalizing an already-canonical knowledge base is a
// no-op.
func Normalize(raw map[string]any) models.KnowledgeBase {
	out := make(models.KnowledgeBase, len(raw))
	for key, value := range raw {
		canon := canonicalKey(key)
		if deniedKeys[canon] {
			continue
		}
		switch canon {
		case models.KeyServices:
			out[canon] = normalizeServices(value)
		case models.KeyPrices:
			out[canon] = normalizePrices(value)
		case models.KeyContacts:
			// Both the mapping and the plain-string form are valid terminal
			// representations; no coercion between them.
			out[canon] = value
		default:
			out[canon] = value
		}
	}
	return out
}

// AsServices coerces any stored services value into the canonical entry
// list. Convenience for consumers reading knowledge bases that round-tripped
// through JSON storage.
func AsServices(v any) []models.ServiceEntry {
	return normalizeServices(v)
}

// AsPrices coerces any stored prices value into a name→price mapping.
func AsPrices(v any) map[string]string {
	return normalizePrices(v)
}

// canonicalKey lower-cases a top-level key and translates known synonyms.
func canonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canon, ok := keySynonyms[k]; ok {
		return canon
	}
	return k
}

// normalizeServices coerces the services field into its canonical shape: an
// ordered list of {name, price} entries, never mixed.
func normalizeServices(value any) []models.ServiceEntry {
	switch v := value.(type) {
	case []models.ServiceEntry:
		// Already canonical.
		return v
	case map[string]any:
		// name→price mapping; insertion order is lost by Go maps, so order
		// entries by name for determinism.
		return servicesFromMap(v)
	case []any:
		entries := make([]models.ServiceEntry, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				entries = append(entries, serviceFromDict(it))
			case models.ServiceEntry:
				entries = append(entries, it)
			default:
				// Scalar entry: treat it as a service name with no price.
				name := models.Stringify(it)
				if name == "" {
					continue
				}
				entries = append(entries, models.ServiceEntry{
					Name:  name,
					Price: models.PriceOnRequest,
				})
			}
		}
		return entries
	case string:
		if v == "" {
			return nil
		}
		return []models.ServiceEntry{{Name: v, Price: models.PriceOnRequest}}
	default:
		return nil
	}
}

func servicesFromMap(m map[string]any) []models.ServiceEntry {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]models.ServiceEntry, 0, len(m))
	for _, name := range names {
		entries = append(entries, models.ServiceEntry{
			Name:  name,
			Price: models.Stringify(m[name]),
		})
	}
	return entries
}

func serviceFromDict(d map[string]any) models.ServiceEntry {
	entry := models.ServiceEntry{
		Name:  models.Stringify(d["name"]),
		Price: models.Stringify(d["price"]),
	}
	if entry.Price == "" {
		entry.Price = models.PriceOnRequest
	}
	return entry
}

// normalizePrices guarantees the prices field is a name→price mapping.
// A non-mapping value is wrapped under "general".
func normalizePrices(value any) map[string]string {
	switch v := value.(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = models.Stringify(item)
		}
		return out
	case nil:
		return map[string]string{}
	default:
		return map[string]string{"general": models.Stringify(v)}
	}
}
