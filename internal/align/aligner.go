package align

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/juliusdelta/oatmeal/internal/api"
)

// Channel names and their fixed speaker labels. The set is closed:
// there are exactly two capture channels and the mapping is not
// configurable here.
const (
	ChannelMic     = "mic"
	ChannelMonitor = "monitor"

	SpeakerUser   = "User"
	SpeakerOthers = "Others"
)

// silenceGapThreshold is the minimal pause between consecutive entries
// counted as a silence gap, seconds, exclusive.
const silenceGapThreshold = 1.0

var (
	// ErrInvalidSegment marks a segment whose end time precedes its start.
	ErrInvalidSegment = errors.New("invalid segment")
	// ErrInvalidChannel marks a segment tagged with an unknown channel.
	ErrInvalidChannel = errors.New("invalid channel")
)

// Align merges two channel segment lists into one list ordered by start
// time. Output keeps the legacy {timestamp, text} shape with no speaker or
// channel information.
func Align(mic, monitor []api.Segment) ([]api.Segment, error) {
	merged, err := merge(mic, monitor)
	if err != nil {
		return nil, err
	}
	res := make([]api.Segment, 0, len(merged))
	for _, e := range merged {
		res = append(res, api.Segment{Timestamp: [2]float64{e.StartTime, e.EndTime}, Text: e.Text})
	}
	return res, nil
}

// AlignEnhanced merges two channel segment lists into the enhanced
// envelope: speaker-attributed conversation entries plus summary
// statistics. Ordering, validation and text are identical to Align.
func AlignEnhanced(mic, monitor []api.Segment, meta api.SessionMetadata) (*api.EnhancedResult, error) {
	merged, err := merge(mic, monitor)
	if err != nil {
		return nil, err
	}
	meta.TotalSegments = len(merged)
	meta.Channels = api.Channels{Mic: SpeakerUser, Monitor: SpeakerOthers}
	return &api.EnhancedResult{
		SessionMetadata: meta,
		Conversation:    merged,
		SummaryHints:    summarize(merged),
	}, nil
}

// merge concatenates both channels and sorts by start time. The sort is
// stable over a mic-then-monitor concatenation, so entries with equal start
// times keep mic before monitor and each channel keeps its input order.
func merge(mic, monitor []api.Segment) ([]api.ConversationEntry, error) {
	res := make([]api.ConversationEntry, 0, len(mic)+len(monitor))
	for _, s := range mic {
		e, err := newEntry(s, ChannelMic)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	for _, s := range monitor {
		e, err := newEntry(s, ChannelMonitor)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	slices.SortStableFunc(res, func(a, b api.ConversationEntry) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return res, nil
}

func newEntry(s api.Segment, channel string) (api.ConversationEntry, error) {
	speaker, err := speakerFor(channel)
	if err != nil {
		return api.ConversationEntry{}, err
	}
	start, end := s.Timestamp[0], s.Timestamp[1]
	if start < 0 || end < start {
		return api.ConversationEntry{}, fmt.Errorf("%w: [%v, %v]", ErrInvalidSegment, start, end)
	}
	return api.ConversationEntry{
		Speaker:   speaker,
		StartTime: start,
		EndTime:   end,
		Duration:  end - start,
		Text:      s.Text,
		Source:    channel,
	}, nil
}

func speakerFor(channel string) (string, error) {
	switch channel {
	case ChannelMic:
		return SpeakerUser, nil
	case ChannelMonitor:
		return SpeakerOthers, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
}

// ValidChannel reports whether channel is one of the two capture channels.
func ValidChannel(channel string) bool {
	return channel == ChannelMic || channel == ChannelMonitor
}

func summarize(conversation []api.ConversationEntry) api.SummaryHints {
	res := api.SummaryHints{TotalSegments: len(conversation)}
	var total float64
	for _, e := range conversation {
		total += e.Duration
		if e.Speaker == SpeakerUser {
			res.UserTalkTimeSeconds += e.Duration
		} else {
			res.OthersTalkTimeSeconds += e.Duration
		}
	}
	if len(conversation) > 0 {
		res.AvgSegmentLength = total / float64(len(conversation))
	}
	res.SilenceGaps = countSilenceGaps(conversation)
	return res
}

// countSilenceGaps walks consecutive entries and counts pauses longer than
// the threshold. Overlapping entries yield a negative pause and never count.
func countSilenceGaps(conversation []api.ConversationEntry) int {
	res := 0
	for i := 1; i < len(conversation); i++ {
		if conversation[i].StartTime-conversation[i-1].EndTime > silenceGapThreshold {
			res++
		}
	}
	return res
}
