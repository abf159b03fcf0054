package entity

import "time"

// TranscriptRecord is one persisted transcript, keyed by video ID. Saving the
// same video twice overwrites content fields and refreshes CapturedAt; it
// never creates a duplicate row.
type TranscriptRecord struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title,omitempty"`
	ChannelName     string    `json:"channel_name,omitempty"`
	CleanText       string    `json:"clean_text,omitempty"`
	RawSize         int       `json:"raw_size"`
	WordCount       int       `json:"word_count"`
	CharCount       int       `json:"char_count"`
	Language        string    `json:"language,omitempty"`
	IsAutoGenerated bool      `json:"is_auto_generated"`
	Summary         string    `json:"summary,omitempty"`
	CapturedAt      time.Time `json:"captured_at"`
}

// WithoutText returns the summary view used by listings: every field except
// the transcript body.
func (r TranscriptRecord) WithoutText() TranscriptRecord {
	r.CleanText = ""
	return r
}

type StorageInfo struct {
	Backend string `json:"backend"`
	Ready   bool   `json:"ready"`
}

type SaveResult struct {
	VideoID string `json:"video_id"`
}

type DeleteResult struct {
	VideoID string `json:"video_id"`
}

type Stats struct {
	TotalCount      int        `json:"total_count"`
	TotalWords      int        `json:"total_words"`
	FirstCapturedAt *time.Time `json:"first_captured_at,omitempty"`
	LastCapturedAt  *time.Time `json:"last_captured_at,omitempty"`
}

type Export struct {
	ExportID   string             `json:"export_id"`
	Records    []TranscriptRecord `json:"records"`
	ExportedAt time.Time          `json:"exported_at"`
}

type ImportResult struct {
	ImportedCount int `json:"imported_count"`
}
