package model

// Session describes the video currently loaded into the cache directory.
type Session struct {
	ID             string `json:"id"`
	VideoURL       string `json:"video_url"`
	VideoID        string `json:"video_id"`
	CacheID        string `json:"cache_id,omitempty"`
	CacheExpiresAt int64  `json:"cache_expires_at,omitempty"`
	ChunkCount     int    `json:"chunk_count"`
	Ctime          int64  `json:"ctime"`
}
