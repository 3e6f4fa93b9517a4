package domain

import "github.com/juliusdelta/oatmeal/internal/api"

// Session is one finished recording session.
type Session struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ChannelSegments holds one channel's transcribed segments.
type ChannelSegments struct {
	Segments []api.Segment `json:"segments"`
}
