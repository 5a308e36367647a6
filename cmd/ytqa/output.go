package main

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/fatih/color"

	"github.com/xxxsen/ytqa/internal/model"
)

var markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)

var (
	questionColor = color.New(color.FgCyan, color.Bold)
	errorColor    = color.New(color.FgRed)
	stampColor    = color.New(color.FgYellow)
	dimColor      = color.New(color.Faint)
)

// hyperlink turns markdown links into OSC-8 terminal hyperlinks.
func hyperlink(text string) string {
	return markdownLinkRe.ReplaceAllString(text, "\x1b]8;;$2\x1b\\$1\x1b]8;;\x1b\\")
}

func printResult(w io.Writer, idx int, r model.BatchResult) {
	questionColor.Fprintf(w, "Q%d: %s\n", idx+1, r.Question)
	if !r.Success {
		errorColor.Fprintf(w, "error: %s\n\n", r.Error)
		return
	}
	answer := r.Answer
	if !color.NoColor {
		answer = hyperlink(answer)
	}
	fmt.Fprintf(w, "%s\n", answer)
	if len(r.Timestamps) > 0 {
		stampColor.Fprintf(w, "timestamps: %s\n", strings.Join(r.Timestamps, ", "))
	}
	fmt.Fprintln(w)
}

func printHistory(w io.Writer, pairs []model.QAPair) {
	if len(pairs) == 0 {
		dimColor.Fprintln(w, "no questions asked yet")
		return
	}
	for i, p := range pairs {
		dimColor.Fprintf(w, "[%s]\n", p.Time.Format("2006-01-02 15:04:05"))
		printResult(w, i, model.SuccessResult(p.Question, p.Answer, p.Timestamps))
	}
}

// progressBar redraws a single status line on every update.
type progressBar struct {
	w     io.Writer
	width int
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w, width: 30}
}

func (p *progressBar) Update(done, total int) {
	if total <= 0 {
		return
	}
	filled := done * p.width / total
	fmt.Fprintf(p.w, "\r[%s%s] %d/%d", strings.Repeat("#", filled), strings.Repeat("-", p.width-filled), done, total)
	if done >= total {
		fmt.Fprintln(p.w)
	}
}

// readQuestions reads one question per line, skipping blanks and # comments.
func readQuestions(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
