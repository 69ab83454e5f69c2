package constructor

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"vitrina/internal/domain/models"
	"vitrina/internal/persona"
	"vitrina/internal/service/kb"
)

// knownPromptKeys are rendered in a fixed order with dedicated sections.
// Anything else in the knowledge base ends up under "Additional details".
var knownPromptKeys = map[string]bool{
	models.KeyServices:       true,
	models.KeyPrices:         true,
	models.KeyAbout:          true,
	models.KeyContacts:       true,
	models.KeyWebsite:        true,
	models.KeyFAQ:            true,
	models.KeyAdvantages:     true,
	models.KeyObjections:     true,
	models.KeyRawData:        true,
	models.KeyAdditionalInfo: true,
	models.KeyBusinessType:   true,
}

// RenderSellerPrompt renders the system prompt for a deployed seller agent.
// Pure and deterministic: same inputs, same prompt. Sections are omitted
// entirely when their field is absent or empty.
func RenderSellerPrompt(agentName, businessType string, base models.KnowledgeBase, p *persona.Persona) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a sales assistant for a %s business.\n", titleCase(agentName), businessType)
	b.WriteString("Talk to customers in their language, answer questions using only the facts below, and guide interested customers toward a purchase or booking. If a fact is not listed below, say you will check and offer to take the customer's contact details.\n")

	if p != nil && p.Voice != "" {
		b.WriteString("\nCommunication style:\n")
		b.WriteString(strings.TrimSpace(p.Voice))
		b.WriteString("\n")
	}

	if services := kb.AsServices(base[models.KeyServices]); len(services) > 0 {
		b.WriteString("\nServices:\n")
		for _, svc := range services {
			if svc.Price != "" {
				fmt.Fprintf(&b, "- %s — %s\n", svc.Name, svc.Price)
			} else {
				fmt.Fprintf(&b, "- %s\n", svc.Name)
			}
		}
	}

	if prices := kb.AsPrices(base[models.KeyPrices]); len(prices) > 0 {
		b.WriteString("\nPrices:\n")
		for _, name := range sortedKeys(prices) {
			fmt.Fprintf(&b, "- %s: %s\n", name, prices[name])
		}
	}

	if about := stringField(base, models.KeyAbout); about != "" {
		b.WriteString("\nAbout the company:\n")
		b.WriteString(about)
		b.WriteString("\n")
	}

	writeContacts(&b, base[models.KeyContacts])

	if website := stringField(base, models.KeyWebsite); website != "" {
		fmt.Fprintf(&b, "\nWebsite: %s\n", website)
	}

	if advantages := stringField(base, models.KeyAdvantages); advantages != "" {
		b.WriteString("\nAdvantages:\n")
		b.WriteString(advantages)
		b.WriteString("\n")
	}

	if objections := stringField(base, models.KeyObjections); objections != "" {
		b.WriteString("\nCommon objections and how to handle them:\n")
		b.WriteString(objections)
		b.WriteString("\n")
	}

	writeFAQ(&b, base[models.KeyFAQ])

	if extra := stringField(base, models.KeyAdditionalInfo); extra != "" {
		b.WriteString("\nAdditional information:\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}

	if raw := stringField(base, models.KeyRawData); raw != "" {
		b.WriteString("\nOther details provided by the owner:\n")
		b.WriteString(raw)
		b.WriteString("\n")
	}

	writeUnknownKeys(&b, base)

	return strings.TrimRight(b.String(), "\n")
}

func writeContacts(b *strings.Builder, value any) {
	switch c := value.(type) {
	case string:
		if c != "" {
			fmt.Fprintf(b, "\nContacts: %s\n", c)
		}
	case map[string]any:
		if len(c) == 0 {
			return
		}
		b.WriteString("\nContacts:\n")
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := models.Stringify(c[k]); v != "" {
				fmt.Fprintf(b, "- %s: %s\n", k, v)
			}
		}
	case models.Contacts:
		if c.Text != "" {
			fmt.Fprintf(b, "\nContacts: %s\n", c.Text)
			return
		}
		if len(c.Fields) > 0 {
			b.WriteString("\nContacts:\n")
			for _, k := range sortedKeys(c.Fields) {
				fmt.Fprintf(b, "- %s: %s\n", k, c.Fields[k])
			}
		}
	}
}

func writeFAQ(b *strings.Builder, value any) {
	entries, ok := value.([]any)
	if !ok || len(entries) == 0 {
		return
	}
	b.WriteString("\nFrequently asked questions:\n")
	for _, entry := range entries {
		switch e := entry.(type) {
		case string:
			fmt.Fprintf(b, "- %s\n", e)
		case map[string]any:
			q := models.Stringify(e["question"])
			a := models.Stringify(e["answer"])
			switch {
			case q != "" && a != "":
				fmt.Fprintf(b, "- Q: %s\n  A: %s\n", q, a)
			case q != "":
				fmt.Fprintf(b, "- %s\n", q)
			default:
				fmt.Fprintf(b, "- %s\n", models.Stringify(e))
			}
		default:
			fmt.Fprintf(b, "- %s\n", models.Stringify(e))
		}
	}
}

func writeUnknownKeys(b *strings.Builder, base models.KnowledgeBase) {
	var keys []string
	for k := range base {
		if !knownPromptKeys[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	b.WriteString("\nAdditional details:\n")
	for _, k := range keys {
		if v := models.Stringify(base[k]); v != "" {
			fmt.Fprintf(b, "- %s: %s\n", k, v)
		}
	}
}

func stringField(base models.KnowledgeBase, key string) string {
	v, ok := base[key]
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(models.Stringify(v))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCase upper-cases the first rune for display. Agent names are stored
// lower-cased by the protocol parser.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
