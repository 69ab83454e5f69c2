package config

import "time"

const (
	// MaxMessageLength is the maximum length of a single constructor
	// message, attachments included.
	MaxMessageLength = 16000

	// MaxAgentNameLength bounds agent names to fit VARCHAR(255) storage.
	MaxAgentNameLength = 255

	// MaxSiteContentChars is the content budget for scraped website text
	// sent to the completion capability. Truncation is positional (first N
	// characters) and silent.
	MaxSiteContentChars = 3500

	// SiteFetchTimeout bounds the website fetch so a slow site cannot stall
	// the conversation.
	SiteFetchTimeout = 12 * time.Second

	// MaxSiteBodyBytes caps how much of a page is read before stripping.
	MaxSiteBodyBytes = 1 << 20

	// MaxRawDataBytes caps the raw_data audit trail, which otherwise grows
	// without bound across repeated updates. The newest fragments win.
	MaxRawDataBytes = 16 << 10

	// MetaAgentMaxTokens bounds meta-agent completions.
	MetaAgentMaxTokens = 2000

	// ExtractMaxTokens bounds website-extraction completions.
	ExtractMaxTokens = 1000
)
