// Package job defines the data types of the job API and the service that
// turns an uploaded recording and transcript into a learning track.
package job

import (
	"time"
)

// Request is one learning-track job. Uploaded files have already been saved
// to AudioPath and LRCPath by the transport.
type Request struct {
	// ID is a unique identifier for this job (UUID).
	ID string `json:"id"`

	// AudioPath and LRCPath point at the stored uploads.
	AudioPath string `json:"-"`
	LRCPath   string `json:"-"`

	// AudioName is the client's filename for the recording.
	AudioName string `json:"audio_name,omitempty"`

	// Language is the target language tag; empty uses the server default.
	Language string `json:"language,omitempty"`

	// Repeat and MaxSegments override the server defaults when set.
	Repeat      *int `json:"repeat,omitempty"`
	MaxSegments *int `json:"max_segments,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of a job.
type Result struct {
	// JobID is the original request ID.
	JobID string `json:"job_id"`

	// Title and Artist come from the transcript tags, if any.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`

	Language string `json:"language"`
	Repeat   int    `json:"repeat"`

	// Lines is the number of transcript lines in the track.
	Lines int `json:"lines"`

	// Fallbacks lists the lines whose spoken clip was replaced by silence.
	Fallbacks []int `json:"fallbacks"`

	// DurationSeconds is the track length; 0 if it could not be measured.
	DurationSeconds float64 `json:"duration_seconds"`

	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`

	// AudioURL is the API path that streams the track.
	AudioURL string `json:"audio_url"`

	// TimelineURL is the API path of the companion LRC, if one was written.
	TimelineURL string `json:"timeline_url,omitempty"`

	// PublishedURL and PublishedTimelineURL are set when object storage is
	// configured and the upload succeeded.
	PublishedURL         string `json:"published_url,omitempty"`
	PublishedTimelineURL string `json:"published_timeline_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
