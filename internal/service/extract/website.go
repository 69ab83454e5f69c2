// Package extract fetches business websites and turns them into structured
// facts via the completion capability. Extraction is best-effort: every
// failure mode here is non-fatal to the conversation that triggered it.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"vitrina/internal/config"
	"vitrina/internal/domain/models"
	domainllm "vitrina/internal/domain/services/llm"
	"vitrina/internal/service/protocol"
)

// Sentinel errors - use with errors.Is(). Callers treat both as "no
// information available" and continue the conversation unaffected.
var (
	// ErrFetch covers timeouts, network errors and non-2xx statuses.
	ErrFetch = errors.New("site fetch failed")

	// ErrNoJSON means the completion response contained no balanced JSON
	// object.
	ErrNoJSON = errors.New("no JSON object in extraction response")
)

// strippedSelectors are removed before text extraction: chrome and code, not
// business facts.
const strippedSelectors = "script, style, noscript, nav, header, footer, iframe, svg, form"

var whitespaceRe = regexp.MustCompile(`\s+`)

const extractInstruction = `Study the following website content and extract business information as JSON:

{
  "business_type": "type of business",
  "services": [
    {"name": "service name", "price": "price"}
  ],
  "about": "short company description",
  "contacts": "contact information"
}

Use an empty string or empty array for anything the content does not mention.
Respond with the JSON object only, no commentary.

Website content:
`

// Service implements the SiteExtractor interface.
type Service struct {
	httpClient *http.Client
	completer  domainllm.Completer
	model      string
	logger     *slog.Logger
}

// NewService creates a website extractor using the given completion backend.
func NewService(completer domainllm.Completer, model string, logger *slog.Logger) *Service {
	return &Service{
		httpClient: &http.Client{
			Timeout: config.SiteFetchTimeout,
		},
		completer: completer,
		model:     model,
		logger:    logger,
	}
}

// FetchAndExtract downloads a page, strips it to plain text and asks the
// completion capability for structured business facts.
func (s *Service) FetchAndExtract(ctx context.Context, url string) (*models.SiteInfo, error) {
	content, err := s.fetchText(ctx, url)
	if err != nil {
		return nil, err
	}

	resp, err := s.completer.Complete(ctx, &domainllm.CompletionRequest{
		Model: s.model,
		Messages: []models.Turn{
			{Role: models.RoleUser, Content: extractInstruction + content},
		},
		Temperature: 0.3,
		MaxTokens:   config.ExtractMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}

	return parseSiteInfo(resp.Content)
}

// fetchText downloads the page and reduces it to whitespace-collapsed body
// text within the content budget.
func (s *Service) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; vitrina/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, config.MaxSiteBodyBytes)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrFetch, err)
	}

	doc.Find(strippedSelectors).Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))

	// Positional truncation, not summarization: the budget bounds completion
	// cost and the page's head usually carries the identity of the business.
	if len(text) > config.MaxSiteContentChars {
		text = text[:config.MaxSiteContentChars]
	}

	s.logger.Debug("site content fetched", "url", url, "chars", len(text))
	return text, nil
}

// parseSiteInfo isolates the first balanced JSON object in the completion
// response. Models wrap JSON in prose and code fences despite instructions,
// so brace matching is used instead of trusting the whole response.
func parseSiteInfo(response string) (*models.SiteInfo, error) {
	obj, ok := protocol.FirstJSONObject(response)
	if !ok || !gjson.Valid(obj) {
		return nil, ErrNoJSON
	}

	var info models.SiteInfo
	if err := json.Unmarshal([]byte(obj), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return &info, nil
}
