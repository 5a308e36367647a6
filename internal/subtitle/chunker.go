package subtitle

import (
	"strings"

	"github.com/xxxsen/ytqa/internal/model"
)

// DefaultChunkChars leaves room for timestamps and joining spaces inside the
// default transcript context budget.
const DefaultChunkChars = 4000

// Chunk greedily packs consecutive segments until the next one would push the
// accumulated text size over maxChars. Only segment text counts toward the size.
func Chunk(segments []model.Segment, maxChars int) []model.TranscriptChunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}
	var (
		chunks  []model.TranscriptChunk
		current []model.Segment
		size    int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, 0, len(current))
		for _, seg := range current {
			texts = append(texts, seg.Text)
		}
		text := strings.Join(texts, " ")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, model.TranscriptChunk{
				Index:     len(chunks),
				StartTime: current[0].StartTime,
				EndTime:   current[len(current)-1].EndTime,
				Text:      text,
			})
		}
		current = nil
		size = 0
	}
	for _, seg := range segments {
		if size+len(seg.Text) > maxChars && len(current) > 0 {
			flush()
		}
		current = append(current, seg)
		size += len(seg.Text)
	}
	flush()
	return chunks
}
