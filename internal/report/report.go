// Package report renders a question run as a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/yuin/goldmark"

	"github.com/xxxsen/ytqa/internal/model"
)

var md = goldmark.New()

// RenderHTML writes one section per result. Answers are treated as markdown so
// citation links stay clickable.
func RenderHTML(w io.Writer, title string, generated time.Time, results []model.BatchResult) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	fmt.Fprintf(&buf, "<h1>%s</h1>\n<p>Generated %s</p>\n", html.EscapeString(title), generated.UTC().Format(time.RFC3339))
	for i, res := range results {
		fmt.Fprintf(&buf, "<section>\n<h2>%d. %s</h2>\n", i+1, html.EscapeString(res.Question))
		if !res.Success {
			fmt.Fprintf(&buf, "<p class=\"error\">Error: %s</p>\n</section>\n", html.EscapeString(res.Error))
			continue
		}
		if err := md.Convert([]byte(res.Answer), &buf); err != nil {
			return fmt.Errorf("render answer %d: %w", i+1, err)
		}
		buf.WriteString("</section>\n")
	}
	buf.WriteString("</body>\n</html>\n")
	_, err := w.Write(buf.Bytes())
	return err
}
