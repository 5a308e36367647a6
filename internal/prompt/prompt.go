// Package prompt assembles the request text sent to the model for one question.
package prompt

import (
	"strings"

	"github.com/xxxsen/ytqa/internal/model"
)

// Header opens every prompt regardless of mode; citation parsing relies on it
// asking for [HH:MM:SS] markers.
const Header = "Please answer the following question based on the video transcript. If the information is not found in the transcript, please indicate this clearly.\n\n" +
	"IMPORTANT: When referencing information from the transcript, ALWAYS include the timestamp in square brackets like this: [HH:MM:SS]. " +
	"For example: \"The speaker mentions at [00:01:30] that...\""

const (
	transcriptLabel = "Video Transcript:\n"
	historyLabel    = "Here are previous questions and answers related to the video:\n\n"
	batchLabel      = "Here are the answers to previous questions in this batch:\n\n"
)

type Mode int

const (
	// ModeStandalone embeds the transcript context in the prompt.
	ModeStandalone Mode = iota
	// ModeCachedContent relies on a provider cache holding the transcript.
	ModeCachedContent
	// ModeInterconnected adds answers from earlier questions of the same run.
	ModeInterconnected
)

func (m Mode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeCachedContent:
		return "cached-content"
	case ModeInterconnected:
		return "interconnected"
	}
	return "unknown"
}

// Request carries everything one prompt is built from.
type Request struct {
	Question string
	Mode     Mode
	// CacheActive only matters for ModeInterconnected: it drops the transcript
	// body the same way ModeCachedContent does.
	CacheActive bool
	Transcript  string
	History     []model.QAPair
	Prior       []model.Exchange
}

func (r Request) includesTranscript() bool {
	switch r.Mode {
	case ModeCachedContent:
		return false
	case ModeInterconnected:
		return !r.CacheActive
	}
	return true
}

// Build renders the prompt for req.
func Build(req Request) string {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("\n\n")
	if req.includesTranscript() {
		sb.WriteString(transcriptLabel)
		sb.WriteString(req.Transcript)
		sb.WriteString("\n\n")
	}
	if len(req.History) > 0 {
		sb.WriteString(historyLabel)
		for _, pair := range req.History {
			writePair(&sb, pair.Question, pair.Answer)
		}
	}
	if req.Mode == ModeInterconnected && len(req.Prior) > 0 {
		sb.WriteString(batchLabel)
		for _, ex := range req.Prior {
			writePair(&sb, ex.Question, ex.Answer)
		}
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(req.Question)
	sb.WriteString("\n")
	return sb.String()
}

func writePair(sb *strings.Builder, question, answer string) {
	sb.WriteString("Q: ")
	sb.WriteString(question)
	sb.WriteString("\nA: ")
	sb.WriteString(answer)
	sb.WriteString("\n\n")
}
