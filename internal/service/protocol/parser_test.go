package protocol

import (
	"strings"
	"testing"

	"vitrina/internal/domain/models"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "flat object",
			input:  `prefix {"a": 1} suffix`,
			want:   `{"a": 1}`,
			wantOK: true,
		},
		{
			name:   "nested objects",
			input:  `{"contacts": {"phone": "123"}, "prices": {"cut": "500"}}`,
			want:   `{"contacts": {"phone": "123"}, "prices": {"cut": "500"}}`,
			wantOK: true,
		},
		{
			name:   "brace inside string literal",
			input:  `{"about": "we use {braces} and \"quotes\" a lot"} trailing`,
			want:   `{"about": "we use {braces} and \"quotes\" a lot"}`,
			wantOK: true,
		},
		{
			name:   "no object",
			input:  "just text",
			wantOK: false,
		},
		{
			name:   "unclosed object",
			input:  `{"a": {"b": 1}`,
			wantOK: false,
		},
		{
			name:   "only first object returned",
			input:  `{"a": 1} {"b": 2}`,
			want:   `{"a": 1}`,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FirstJSONObject() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FirstJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReadyBlockForm(t *testing.T) {
	response := `Great, your assistant is ready!

---AGENT-READY---
NAME: Victoria
TYPE: Beauty salon
DATA: {"services": [{"name": "Haircut", "price": "500"}], "contacts": {"phone": "+7 900 000-00-00"}}
---

Let me know if you want changes.`

	result := ParseReady(response)
	if result == nil {
		t.Fatal("ParseReady() = nil, want result")
	}
	if result.AgentName != "victoria" {
		t.Errorf("AgentName = %q, want %q", result.AgentName, "victoria")
	}
	if result.BusinessType != "Beauty salon" {
		t.Errorf("BusinessType = %q, want %q", result.BusinessType, "Beauty salon")
	}
	services, ok := result.KnowledgeBase["services"].([]any)
	if !ok || len(services) != 1 {
		t.Fatalf("services = %#v, want one entry", result.KnowledgeBase["services"])
	}
}

func TestParseReadyBracketForm(t *testing.T) {
	response := `Done! [AGENT_READY] [AGENT_NAME: Alexander] [BUSINESS_TYPE: Car wash] [KNOWLEDGE_BASE: {"prices": {"basic": "300"}}]`

	result := ParseReady(response)
	if result == nil {
		t.Fatal("ParseReady() = nil, want result")
	}
	if result.AgentName != "alexander" {
		t.Errorf("AgentName = %q, want %q", result.AgentName, "alexander")
	}
	if result.BusinessType != "Car wash" {
		t.Errorf("BusinessType = %q, want %q", result.BusinessType, "Car wash")
	}
	if _, ok := result.KnowledgeBase["prices"]; !ok {
		t.Errorf("KnowledgeBase missing prices: %#v", result.KnowledgeBase)
	}
}

func TestParseReadyEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantNil  bool
	}{
		{
			name:     "no marker",
			response: "What services do you offer?",
			wantNil:  true,
		},
		{
			name:     "marker without name",
			response: "---AGENT-READY---\nTYPE: Bakery\nDATA: {}\n---",
			wantNil:  true,
		},
		{
			name:     "marker without type",
			response: "---AGENT-READY---\nNAME: Victoria\nDATA: {}\n---",
			wantNil:  true,
		},
		{
			name:     "bracket marker without fields",
			response: "[AGENT_READY] still collecting info",
			wantNil:  true,
		},
		{
			name:     "missing closing dashes",
			response: "---AGENT-READY---\nNAME: Victoria\nTYPE: Bakery\nDATA: {\"about\": \"family bakery\"}",
			wantNil:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseReady(tt.response)
			if (result == nil) != tt.wantNil {
				t.Errorf("ParseReady() = %#v, wantNil = %v", result, tt.wantNil)
			}
		})
	}
}

func TestParseReadyDashesInsideJSON(t *testing.T) {
	// A "---" inside a JSON string must not truncate the DATA object.
	response := "---AGENT-READY---\nNAME: Victoria\nTYPE: Salon\nDATA: {\"about\": \"open --- every day\", \"website\": \"https://salon.example\"}\n---"

	result := ParseReady(response)
	if result == nil {
		t.Fatal("ParseReady() = nil, want result")
	}
	about, _ := result.KnowledgeBase["about"].(string)
	if about != "open --- every day" {
		t.Errorf("about = %q, want full string with dashes", about)
	}
}

func TestParseReadyMalformedDataFallsBackToRaw(t *testing.T) {
	response := "---AGENT-READY---\nNAME: Victoria\nTYPE: Salon\nDATA: услуги стрижка 500, маникюр 700\n---"

	result := ParseReady(response)
	if result == nil {
		t.Fatal("ParseReady() = nil, want result")
	}
	raw, _ := result.KnowledgeBase[models.KeyRawData].(string)
	if !strings.Contains(raw, "стрижка 500") {
		t.Errorf("raw_data = %q, want original text preserved", raw)
	}
}

func TestParseUpdate(t *testing.T) {
	response := `Updated!

---AGENT-UPDATE---
DATA: {"services": [{"name": "Manicure", "price": "700"}]}
---`

	kb := ParseUpdate(response)
	if kb == nil {
		t.Fatal("ParseUpdate() = nil, want knowledge base")
	}
	if _, ok := kb["services"]; !ok {
		t.Errorf("update payload missing services: %#v", kb)
	}

	if got := ParseUpdate("nothing to see"); got != nil {
		t.Errorf("ParseUpdate() = %#v, want nil without marker", got)
	}
}

func TestNormalizeAgentName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Victoria", "victoria"},
		{"  ВИКТОРИЯ  ", "виктория"},
		{"alexander", "alexander"},
	}
	for _, tt := range tests {
		if got := NormalizeAgentName(tt.in); got != tt.want {
			t.Errorf("NormalizeAgentName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanTags(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "block form removed",
			response: "Your assistant is ready!\n\n---AGENT-READY---\nNAME: Victoria\nTYPE: Salon\nDATA: {\"services\": []}\n---\n\nEnjoy!",
			want:     "Your assistant is ready!\n\nEnjoy!",
		},
		{
			name:     "bracket form removed",
			response: `All set! [AGENT_READY] [AGENT_NAME: Victoria] [BUSINESS_TYPE: Salon] [KNOWLEDGE_BASE: {"a": 1}]`,
			want:     "All set!",
		},
		{
			name:     "dashes inside json survive",
			response: "Ready!\n---AGENT-READY---\nNAME: V\nTYPE: S\nDATA: {\"about\": \"open --- daily\"}\n---\nBye",
			want:     "Ready!\nBye",
		},
		{
			name:     "no markers is a no-op",
			response: "Tell me about your prices.",
			want:     "Tell me about your prices.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanTags(tt.response)
			// Removing a block leaves blank lines behind; compare with
			// whitespace collapsed.
			if collapseWS(got) != collapseWS(tt.want) {
				t.Errorf("CleanTags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func collapseWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
