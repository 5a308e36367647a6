package model

// Segment is one cue of a parsed subtitle track.
type Segment struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

// TranscriptChunk is a time-bounded span of transcript text used as one retrieval unit.
type TranscriptChunk struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

func (c TranscriptChunk) Key() string {
	return c.StartTime + "_" + c.EndTime
}
