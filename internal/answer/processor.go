// Package answer turns raw model output into a validated, linked answer and
// records it in the question history.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/pkg/timestamp"
)

// FallbackAnswer replaces an empty or "none" model reply.
const FallbackAnswer = "I apologize, but I couldn't generate a meaningful answer for this question. " +
	"This might be due to limitations in the API response or the content of the video transcript. " +
	"Please try rephrasing your question or asking about a different aspect of the video."

const DefaultVideoBaseURL = "https://youtu.be/"

type IHistoryWriter interface {
	Add(ctx context.Context, question, answer string, timestamps []string) (model.QAPair, error)
}

// Annotated is the result of post-processing one raw reply.
type Annotated struct {
	Answer     string
	Timestamps []string
	NoInfo     bool
	Inferred   bool
}

type Processor struct {
	phrases *Phrases
	history IHistoryWriter
	baseURL string
}

func NewProcessor(phrases *Phrases, history IHistoryWriter, videoBaseURL string) *Processor {
	if phrases == nil {
		phrases = DefaultPhrases()
	}
	if videoBaseURL == "" {
		videoBaseURL = DefaultVideoBaseURL
	}
	return &Processor{phrases: phrases, history: history, baseURL: videoBaseURL}
}

// VideoLink builds the deep link for a video at ts.
func (p *Processor) VideoLink(videoID, ts string) string {
	return fmt.Sprintf("%s%s?t=%d", p.baseURL, videoID, timestamp.Seconds(ts))
}

// Annotate applies the answer pipeline without persisting anything.
// boundaries are the transcript chunk start and end times.
func (p *Processor) Annotate(raw string, videoID string, boundaries []string) Annotated {
	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, "none") {
		text = FallbackAnswer
	}

	citations := timestamp.FindCitations(text)
	candidates := make([]string, 0, len(citations))
	for _, c := range citations {
		candidates = append(candidates, c.Raw)
	}

	if videoID != "" && len(citations) > 0 {
		text = timestamp.ReplaceCitations(text, func(c timestamp.Citation, matched string) string {
			return matched + "(" + p.VideoLink(videoID, c.Start) + ")"
		})
	}

	out := Annotated{}
	if p.phrases.DeniesCoverage(text) {
		out.NoInfo = true
		candidates = nil
		if !p.phrases.HasStrongMarker(text) {
			text = p.phrases.Notice + text
		}
	} else if len(candidates) == 0 {
		seen := make(map[string]struct{})
		for _, b := range boundaries {
			if b == "" {
				continue
			}
			if _, ok := seen[b]; ok {
				continue
			}
			if strings.Contains(text, b) {
				seen[b] = struct{}{}
				candidates = append(candidates, b)
			}
		}
		out.Inferred = len(candidates) > 0
	}

	out.Answer = text
	out.Timestamps = timestamp.Validate(candidates)
	return out
}

// Process annotates raw and appends the exchange to the history.
func (p *Processor) Process(ctx context.Context, question, raw, videoID string, boundaries []string) (model.BatchResult, error) {
	ann := p.Annotate(raw, videoID, boundaries)
	logger := logutil.GetLogger(ctx)
	if ann.NoInfo {
		logger.Debug("answer denies transcript coverage, citations dropped")
	}
	if ann.Inferred {
		logger.Debug("citations inferred from chunk boundaries", zap.Strings("timestamps", ann.Timestamps))
	}
	if p.history != nil {
		if _, err := p.history.Add(ctx, question, ann.Answer, ann.Timestamps); err != nil {
			return model.BatchResult{}, fmt.Errorf("record answer: %w", err)
		}
	}
	return model.SuccessResult(question, ann.Answer, ann.Timestamps), nil
}
