package subtitle

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
)

// ParseVTT parses WebVTT content into ordered segments. The header block, up to
// the first blank line, is skipped; cues without a timing line or text are dropped.
func ParseVTT(ctx context.Context, content string) []model.Segment {
	logger := logutil.GetLogger(ctx)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if strings.TrimSpace(content) == "" {
		logger.Warn("vtt content is empty")
		return nil
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	start := 0
	for i, line := range lines {
		if i > 0 && strings.TrimSpace(line) == "" {
			start = i + 1
			break
		}
	}
	body := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	blocks := strings.Split(body, "\n\n")

	segments := make([]model.Segment, 0, len(blocks))
	for i, block := range blocks {
		blockLines := strings.Split(strings.TrimSpace(block), "\n")
		if len(blockLines) < 2 {
			logger.Debug("skip vtt block with too few lines", zap.Int("block", i))
			continue
		}
		timing := -1
		for j, line := range blockLines {
			if strings.Contains(line, " --> ") {
				timing = j
				break
			}
		}
		if timing < 0 {
			logger.Debug("skip vtt block without timing line", zap.Int("block", i))
			continue
		}
		parts := strings.SplitN(blockLines[timing], " --> ", 2)
		startTime := strings.TrimSpace(parts[0])
		endFields := strings.Fields(parts[1])
		if startTime == "" || len(endFields) == 0 {
			continue
		}
		text := strings.Join(blockLines[timing+1:], " ")
		if text == "" {
			logger.Debug("skip vtt block with empty text", zap.Int("block", i))
			continue
		}
		segments = append(segments, model.Segment{
			StartTime: startTime,
			EndTime:   endFields[0],
			Text:      text,
		})
	}
	logger.Info("vtt parsed", zap.Int("blocks", len(blocks)), zap.Int("segments", len(segments)))
	return segments
}
