// Package protocol parses the in-band text protocol the meta-agent uses to
// signal "the agent specification is complete". Two marker families coexist
// for compatibility with older meta-agent prompts:
//
// Block form:
//
//	---AGENT-READY---
//	NAME: Victoria
//	TYPE: Beauty salon
//	DATA: {"services": [...]}
//	---
//
// Bracket form:
//
//	[AGENT_READY] [AGENT_NAME: Victoria] [BUSINESS_TYPE: Beauty salon]
//	[KNOWLEDGE_BASE: {"services": [...]}]
//
// "Marker absent" (steady-state gathering) and "marker present but
// malformed" both yield nil rather than an error: the conversation simply
// continues.
package protocol

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"vitrina/internal/domain/models"
)

const (
	readyMarker  = "---AGENT-READY---"
	updateMarker = "---AGENT-UPDATE---"

	bracketReady = "[AGENT_READY]"
	bracketKB    = "[KNOWLEDGE_BASE:"
)

var (
	nameRe = regexp.MustCompile(`(?m)^\s*NAME:[ \t]*(.+?)\s*$`)
	typeRe = regexp.MustCompile(`(?m)^\s*TYPE:[ \t]*(.+?)\s*$`)
	dataRe = regexp.MustCompile(`DATA:`)

	bracketNameRe = regexp.MustCompile(`\[AGENT_NAME:\s*([^\]]+)\]`)
	bracketTypeRe = regexp.MustCompile(`\[BUSINESS_TYPE:\s*([^\]]+)\]`)
	bracketTagRe  = regexp.MustCompile(`\[(?:AGENT_READY|AGENT_NAME|BUSINESS_TYPE)[^\]]*\]`)

	blockCloseRe = regexp.MustCompile(`(?m)^---\s*$`)
)

// ParseReady scans a completion response for a ready marker and extracts the
// agent fields. Returns nil when no marker is present or when a marker is
// present but NAME/TYPE are missing (the response is treated as "not ready
// yet" and the conversation continues).
func ParseReady(text string) *models.ProtocolResult {
	if idx := strings.Index(text, readyMarker); idx >= 0 {
		return parseBlock(text, idx+len(readyMarker))
	}
	if strings.Contains(text, bracketReady) {
		return parseBracket(text)
	}
	return nil
}

// ParseUpdate extracts the partial knowledge-base payload of an
// ---AGENT-UPDATE--- block. No NAME/TYPE is required; only the DATA object
// matters. Returns nil when the marker is absent or carries no DATA.
func ParseUpdate(text string) models.KnowledgeBase {
	idx := strings.Index(text, updateMarker)
	if idx < 0 {
		return nil
	}
	rest := text[idx+len(updateMarker):]

	loc := dataRe.FindStringIndex(rest)
	if loc == nil {
		return nil
	}
	return parseData(rest[loc[1]:])
}

// parseBlock handles the block form starting after the opening marker.
func parseBlock(text string, after int) *models.ProtocolResult {
	rest := text[after:]

	// NAME/TYPE live between the opening marker and the closing --- (which
	// the model sometimes omits, so fall back to end of string). DATA is
	// deliberately scanned on the unbounded remainder: brace-depth matching
	// already stops at the right place, and a "---" inside a JSON string
	// must not cut the object short.
	fields := rest
	if loc := blockCloseRe.FindStringIndex(rest); loc != nil {
		fields = rest[:loc[0]]
	}

	nameMatch := nameRe.FindStringSubmatch(fields)
	typeMatch := typeRe.FindStringSubmatch(fields)
	if nameMatch == nil || typeMatch == nil {
		return nil
	}

	kb := models.KnowledgeBase{}
	if loc := dataRe.FindStringIndex(rest); loc != nil {
		kb = parseData(rest[loc[1]:])
	}

	return &models.ProtocolResult{
		AgentName:     NormalizeAgentName(nameMatch[1]),
		BusinessType:  strings.TrimSpace(typeMatch[1]),
		KnowledgeBase: kb,
	}
}

// parseBracket handles the bracket form.
func parseBracket(text string) *models.ProtocolResult {
	nameMatch := bracketNameRe.FindStringSubmatch(text)
	typeMatch := bracketTypeRe.FindStringSubmatch(text)
	if nameMatch == nil || typeMatch == nil {
		return nil
	}

	kb := models.KnowledgeBase{}
	if idx := strings.Index(text, bracketKB); idx >= 0 {
		kb = parseData(text[idx+len(bracketKB):])
	}

	return &models.ProtocolResult{
		AgentName:     NormalizeAgentName(nameMatch[1]),
		BusinessType:  strings.TrimSpace(typeMatch[1]),
		KnowledgeBase: kb,
	}
}

// parseData isolates the DATA payload. A balanced JSON object is decoded;
// anything else (no object, or an object that fails strict parse) is kept
// verbatim under raw_data so user-supplied facts survive a malformed
// response.
func parseData(rest string) models.KnowledgeBase {
	obj, ok := FirstJSONObject(rest)
	if !ok {
		raw := firstLine(rest)
		if raw == "" {
			return models.KnowledgeBase{}
		}
		return models.KnowledgeBase{models.KeyRawData: raw}
	}

	if gjson.Valid(obj) {
		var m map[string]any
		if err := json.Unmarshal([]byte(obj), &m); err == nil {
			return models.KnowledgeBase(m)
		}
	}
	return models.KnowledgeBase{models.KeyRawData: obj}
}

// firstLine returns the trimmed first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// NormalizeAgentName applies the single casing policy for agent names:
// lowercase, trimmed.
func NormalizeAgentName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CleanTags strips both marker families from a response so the user sees
// only the conversational text.
func CleanTags(text string) string {
	// Bracket knowledge base first: its payload contains ']' so the generic
	// tag regex cannot delimit it.
	if idx := strings.Index(text, bracketKB); idx >= 0 {
		rest := text[idx+len(bracketKB):]
		if obj, ok := FirstJSONObject(rest); ok {
			end := idx + len(bracketKB) + strings.Index(rest, obj) + len(obj)
			if end < len(text) && text[end] == ']' {
				end++
			}
			text = text[:idx] + text[end:]
		} else {
			text = text[:idx]
		}
	}
	text = bracketTagRe.ReplaceAllString(text, "")

	text = cleanBlock(text, readyMarker)
	text = cleanBlock(text, updateMarker)

	return strings.TrimSpace(text)
}

// cleanBlock removes a block-form marker and everything through its closing
// --- (or to end of string when the close is omitted).
func cleanBlock(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return text
	}
	rest := text[idx+len(marker):]

	// Skip past the DATA object, if any, so a "---" inside JSON does not end
	// the block early.
	searchFrom := 0
	if loc := dataRe.FindStringIndex(rest); loc != nil {
		if obj, ok := FirstJSONObject(rest[loc[1]:]); ok {
			searchFrom = loc[1] + strings.Index(rest[loc[1]:], obj) + len(obj)
		}
	}

	if loc := blockCloseRe.FindStringIndex(rest[searchFrom:]); loc != nil {
		return text[:idx] + rest[searchFrom+loc[1]:]
	}
	return text[:idx]
}
