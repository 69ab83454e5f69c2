package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical knowledge base keys. The normalizer guarantees that a stored
// knowledge base only uses these names (plus pass-through keys for anything
// the meta-agent invented on its own).
const (
	KeyServices       = "services"
	KeyPrices         = "prices"
	KeyAbout          = "about"
	KeyContacts       = "contacts"
	KeyWebsite        = "website"
	KeyFAQ            = "faq"
	KeyAdvantages     = "advantages"
	KeyObjections     = "objections"
	KeyRawData        = "raw_data"
	KeyAdditionalInfo = "additional_info"
	KeyBusinessType   = "business_type"
)

// KnowledgeBase is the structured record of business facts that parameterizes
// a seller agent. Known keys are canonical English names; unknown keys pass
// through so the meta-agent can attach extra facts without schema changes.
// Values follow the shapes produced by kb.Normalize.
type KnowledgeBase map[string]any

// Clone returns a deep copy. The merger works on clones so an existing
// agent's knowledge base is never mutated in place.
func (kb KnowledgeBase) Clone() KnowledgeBase {
	if kb == nil {
		return KnowledgeBase{}
	}
	out := make(KnowledgeBase, len(kb))
	for k, v := range kb {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case map[string]string:
		m := make(map[string]string, len(val))
		for k, item := range val {
			m[k] = item
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = cloneValue(item)
		}
		return s
	case []ServiceEntry:
		s := make([]ServiceEntry, len(val))
		copy(s, val)
		return s
	default:
		return v
	}
}

// ServiceEntry is one service with its price. Prices stay strings because the
// meta-agent reports them in free form ("500", "from 1000 rub", "on request").
type ServiceEntry struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// UnmarshalJSON accepts either the object form {"name": ..., "price": ...}
// or a bare string, which becomes a service with price "on request".
func (e *ServiceEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Name = s
		e.Price = PriceOnRequest
		return nil
	}
	type plain ServiceEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = ServiceEntry(p)
	return nil
}

// PriceOnRequest is the placeholder price for services the meta-agent listed
// without a price.
const PriceOnRequest = "on request"

// Contacts holds contact details in either of the two accepted shapes: a
// free-form string or a field mapping (phone/email/address/...). Both are
// valid terminal representations; consumers branch on which one is set.
type Contacts struct {
	Text   string
	Fields map[string]string
}

// IsZero reports whether no contact information is present.
func (c Contacts) IsZero() bool {
	return c.Text == "" && len(c.Fields) == 0
}

// UnmarshalJSON accepts a string or an object of string-ish values.
func (c *Contacts) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Fields = make(map[string]string, len(raw))
	for k, v := range raw {
		c.Fields[strings.ToLower(k)] = Stringify(v)
	}
	return nil
}

// MarshalJSON emits whichever representation is populated, preferring the
// field mapping when both are somehow set.
func (c Contacts) MarshalJSON() ([]byte, error) {
	if len(c.Fields) > 0 {
		return json.Marshal(c.Fields)
	}
	return json.Marshal(c.Text)
}

// SiteInfo is the structured summary extracted from a business website.
// Transient: it is rendered into a synthetic system turn or merged into a
// knowledge base, never persisted on its own.
type SiteInfo struct {
	BusinessType string         `json:"business_type,omitempty"`
	Services     []ServiceEntry `json:"services,omitempty"`
	About        string         `json:"about,omitempty"`
	Contacts     Contacts       `json:"contacts,omitempty"`
	RawData      string         `json:"raw_data,omitempty"`
}

// IsEmpty reports whether extraction produced nothing usable.
func (s *SiteInfo) IsEmpty() bool {
	return s == nil ||
		(s.BusinessType == "" && len(s.Services) == 0 && s.About == "" &&
			s.Contacts.IsZero() && s.RawData == "")
}

// ProtocolResult is the normalized output of one successful parse of a
// completion response carrying a ready/update marker.
type ProtocolResult struct {
	AgentName     string
	BusinessType  string
	KnowledgeBase KnowledgeBase
}

// Stringify renders a JSON-ish scalar as a string. Non-scalar values fall
// back to their JSON encoding.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; print integers without a fraction.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
