package constructor

import (
	"fmt"
	"log/slog"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"vitrina/internal/domain/services"
)

// attachmentConverter renders uploaded files into text the meta-agent can
// read. HTML files are sanitized and converted to markdown; everything else
// passes through as-is.
type attachmentConverter struct {
	sanitizer *bluemonday.Policy
	converter *md.Converter
	logger    *slog.Logger
}

func newAttachmentConverter(logger *slog.Logger) *attachmentConverter {
	return &attachmentConverter{
		sanitizer: bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// render appends attached file contents under a banner, mirroring how a user
// would paste the same facts by hand.
func (c *attachmentConverter) render(files []services.UploadedFile) string {
	if len(files) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n[Attached files]:\n")
	for _, f := range files {
		content := f.Content
		if isHTML(f.Name) {
			converted, err := c.converter.ConvertString(c.sanitizer.Sanitize(f.Content))
			if err != nil {
				c.logger.Warn("attachment conversion failed, using raw content", "file", f.Name, "error", err)
			} else {
				content = converted
			}
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", f.Name, strings.TrimSpace(content))
	}
	return b.String()
}

func isHTML(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}
