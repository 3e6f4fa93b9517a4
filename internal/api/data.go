package api

// Segment is one transcribed utterance from a single channel.
// Wire format matches the per-channel transcription files:
// {"timestamp": [start, end], "text": "..."}.
type Segment struct {
	Timestamp [2]float64 `json:"timestamp"`
	Text      string     `json:"text"`
}

// ConversationEntry is one merged, speaker-attributed record.
type ConversationEntry struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
	Source    string  `json:"source"`
}

// Channels maps channel names to their fixed speaker labels.
type Channels struct {
	Mic     string `json:"mic"`
	Monitor string `json:"monitor"`
}

// SessionMetadata describes the recording session the segments came from.
type SessionMetadata struct {
	Timestamp       string   `json:"timestamp"`
	DurationSeconds float64  `json:"duration_seconds"`
	TotalSegments   int      `json:"total_segments"`
	Channels        Channels `json:"channels"`
}

// SummaryHints are aggregates over the merged conversation.
type SummaryHints struct {
	UserTalkTimeSeconds   float64 `json:"user_talk_time_seconds"`
	OthersTalkTimeSeconds float64 `json:"others_talk_time_seconds"`
	SilenceGaps           int     `json:"silence_gaps"`
	AvgSegmentLength      float64 `json:"avg_segment_length"`
	TotalSegments         int     `json:"total_segments"`
}

// EnhancedResult is the envelope persisted by enhanced-format consumers.
type EnhancedResult struct {
	SessionMetadata SessionMetadata     `json:"session_metadata"`
	Conversation    []ConversationEntry `json:"conversation"`
	SummaryHints    SummaryHints        `json:"summary_hints"`
}

// WsMsg is one websocket ingest frame.
type WsMsg struct {
	Event     string      `json:"event,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	Timestamp *[2]float64 `json:"timestamp,omitempty"`
	Text      string      `json:"text"`
}

const (
	EventSegment = "SEGMENT"
	EventStop    = "STOP_SESSION"
	EventStopped = "SESSION_STOPPED"
)

// CreateSessionRequest is the POST /sessions body.
type CreateSessionRequest struct {
	Timestamp       string  `json:"timestamp,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// CreateSessionResponse is returned on session creation.
type CreateSessionResponse struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}
