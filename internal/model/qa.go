package model

import "time"

type QAPair struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Timestamps []string  `json:"timestamps"`
	Time       time.Time `json:"time"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// WithEmbedding returns a copy of the pair carrying emb.
func (p QAPair) WithEmbedding(emb []float32) QAPair {
	out := p
	out.Timestamps = append([]string(nil), p.Timestamps...)
	out.Embedding = append([]float32(nil), emb...)
	return out
}

// Exchange is a question answered earlier in the same interconnected run.
type Exchange struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Timestamps []string `json:"timestamps"`
}
