package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainllm "vitrina/internal/domain/services/llm"
)

// fakeCompleter records the request and returns a canned response.
type fakeCompleter struct {
	lastReq  *domainllm.CompletionRequest
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, req *domainllm.CompletionRequest) (*domainllm.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domainllm.CompletionResponse{Content: f.response, Model: req.Model}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchAndExtract(t *testing.T) {
	page := `<html><head><title>Salon</title><script>var x = 1;</script></head>
	<body>
		<nav>Home About</nav>
		<h1>Beauty Salon Anna</h1>
		<p>Haircuts from 500 rub. Call +7 900 000-00-00.</p>
		<footer>© 2026</footer>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	completer := &fakeCompleter{
		response: `Here you go:
{"business_type": "beauty salon", "services": [{"name": "Haircut", "price": "500"}], "about": "Salon Anna", "contacts": "+7 900 000-00-00"}`,
	}
	svc := NewService(completer, "test-model", testLogger())

	info, err := svc.FetchAndExtract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchAndExtract() error = %v", err)
	}

	if info.BusinessType != "beauty salon" {
		t.Errorf("BusinessType = %q", info.BusinessType)
	}
	if len(info.Services) != 1 || info.Services[0].Name != "Haircut" {
		t.Errorf("Services = %#v", info.Services)
	}
	if info.Contacts.Text != "+7 900 000-00-00" {
		t.Errorf("Contacts = %#v", info.Contacts)
	}

	// The prompt must carry page text but not script/nav/footer chrome.
	prompt := completer.lastReq.Messages[0].Content
	if !strings.Contains(prompt, "Beauty Salon Anna") {
		t.Error("prompt missing page content")
	}
	for _, stripped := range []string{"var x = 1", "Home About", "© 2026"} {
		if strings.Contains(prompt, stripped) {
			t.Errorf("prompt contains stripped content %q", stripped)
		}
	}
}

func TestFetchAndExtractHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewService(&fakeCompleter{}, "test-model", testLogger())

	_, err := svc.FetchAndExtract(context.Background(), server.URL)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("error = %v, want ErrFetch", err)
	}
}

func TestFetchAndExtractUnreachable(t *testing.T) {
	svc := NewService(&fakeCompleter{}, "test-model", testLogger())

	_, err := svc.FetchAndExtract(context.Background(), "http://127.0.0.1:1")
	if !errors.Is(err, ErrFetch) {
		t.Errorf("error = %v, want ErrFetch", err)
	}
}

func TestFetchAndExtractNoJSONInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>content</body></html>"))
	}))
	defer server.Close()

	svc := NewService(&fakeCompleter{response: "I could not find any business information."}, "test-model", testLogger())

	_, err := svc.FetchAndExtract(context.Background(), server.URL)
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("error = %v, want ErrNoJSON", err)
	}
}

func TestParseSiteInfoContactsObjectForm(t *testing.T) {
	info, err := parseSiteInfo(`{"business_type": "bakery", "contacts": {"Phone": "123", "Email": "a@b.c"}}`)
	if err != nil {
		t.Fatalf("parseSiteInfo() error = %v", err)
	}
	if info.Contacts.Fields["phone"] != "123" {
		t.Errorf("Contacts.Fields = %#v, want lower-cased keys", info.Contacts.Fields)
	}
}

func TestParseSiteInfoEmpty(t *testing.T) {
	info, err := parseSiteInfo(`{"business_type": "", "services": [], "about": "", "contacts": ""}`)
	if err != nil {
		t.Fatalf("parseSiteInfo() error = %v", err)
	}
	if !info.IsEmpty() {
		t.Errorf("IsEmpty() = false for %#v", info)
	}
}

func TestSiteInfoTruncation(t *testing.T) {
	huge := "<html><body>" + strings.Repeat("word ", 2000) + "</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(huge))
	}))
	defer server.Close()

	completer := &fakeCompleter{response: `{"about": "x"}`}
	svc := NewService(completer, "test-model", testLogger())

	if _, err := svc.FetchAndExtract(context.Background(), server.URL); err != nil {
		t.Fatalf("FetchAndExtract() error = %v", err)
	}

	prompt := completer.lastReq.Messages[0].Content
	content := strings.TrimPrefix(prompt, extractInstruction)
	if len(content) > 3500 {
		t.Errorf("site content = %d chars, want <= 3500", len(content))
	}
}
