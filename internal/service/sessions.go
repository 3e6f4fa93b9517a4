package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/align"
	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/db"
	"github.com/juliusdelta/oatmeal/internal/domain"
	"github.com/juliusdelta/oatmeal/internal/handlers"
	"github.com/juliusdelta/oatmeal/internal/media"
	"github.com/juliusdelta/oatmeal/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// sessionTimestampLayout matches the session directory naming of the
// capture tooling.
const sessionTimestampLayout = "2006-01-02_15-04-05"

func createSession(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		var req api.CreateSessionRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode request")
		}
		if req.Timestamp == "" {
			req.Timestamp = time.Now().Format(sessionTimestampLayout)
		}
		session := &domain.Session{
			ID:              ulid.Make().String(),
			Timestamp:       req.Timestamp,
			DurationSeconds: req.DurationSeconds,
		}
		if err := data.Store.SaveSession(c.Request().Context(), session); err != nil {
			goapp.Log.Error().Err(err).Msg("can't save session")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		goapp.Log.Info().Str("id", session.ID).Str("timestamp", session.Timestamp).Msg("session created")
		return c.JSON(http.StatusCreated, api.CreateSessionResponse{ID: session.ID, Timestamp: session.Timestamp})
	}
}

func saveSegments(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id, channel := c.Param("id"), c.Param("channel")
		if !align.ValidChannel(channel) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown channel: "+channel)
		}
		var segments []api.Segment
		if err := c.Bind(&segments); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't decode segments")
		}
		ctx := c.Request().Context()
		segments = processTexts(ctx, data.TextHandler, segments)
		if err := data.Store.SaveSegments(ctx, id, channel, segments); err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, map[string]int{"saved": len(segments)})
	}
}

func saveAudio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		id, channel := c.Param("id"), c.Param("channel")
		if !align.ValidChannel(channel) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown channel: "+channel)
		}
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't read body")
		}
		if err := data.Store.SaveAudio(c.Request().Context(), id, channel, [][]byte{body}); err != nil {
			return storeError(err)
		}
		return c.NoContent(http.StatusOK)
	}
}

func getTranscript(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		mic, monitor, err := loadChannels(ctx, data.Store, c.Param("id"))
		if err != nil {
			return err
		}
		res, err := align.Align(mic, monitor)
		if err != nil {
			return alignError(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func getEnhancedTranscript(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		session, err := data.Store.GetSession(ctx, id)
		if err != nil {
			return storeError(err)
		}
		mic, monitor, err := loadChannels(ctx, data.Store, id)
		if err != nil {
			return err
		}
		meta := api.SessionMetadata{
			Timestamp:       session.Timestamp,
			DurationSeconds: sessionDuration(ctx, data.Store, session),
		}
		res, err := align.AlignEnhanced(mic, monitor, meta)
		if err != nil {
			return alignError(err)
		}
		hints := res.SummaryHints
		goapp.Log.Info().Str("id", id).Int("segments", hints.TotalSegments).
			Float64("user_talk", hints.UserTalkTimeSeconds).
			Float64("others_talk", hints.OthersTalkTimeSeconds).
			Float64("avg_segment", hints.AvgSegmentLength).
			Int("silence_gaps", hints.SilenceGaps).Msg("session summary")
		return c.JSON(http.StatusOK, res)
	}
}

func loadChannels(ctx context.Context, store SessionStore, id string) (mic, monitor []api.Segment, err error) {
	mic, err = store.GetSegments(ctx, id, align.ChannelMic)
	if err != nil {
		return nil, nil, storeError(err)
	}
	monitor, err = store.GetSegments(ctx, id, align.ChannelMonitor)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return mic, monitor, nil
}

// sessionDuration backfills a missing session duration from captured
// audio, taking the longer channel.
func sessionDuration(ctx context.Context, store SessionStore, session *domain.Session) float64 {
	if session.DurationSeconds > 0 {
		return session.DurationSeconds
	}
	res := 0.0
	for _, channel := range []string{align.ChannelMic, align.ChannelMonitor} {
		audio, err := store.GetAudio(ctx, session.ID, channel)
		if err != nil {
			continue
		}
		d, err := media.WavDuration(audio)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("channel", channel).Msg("can't probe wav duration")
			continue
		}
		if d > res {
			res = d
		}
	}
	return res
}

func processTexts(ctx context.Context, handler handlers.Handler, segments []api.Segment) []api.Segment {
	if handler == nil {
		return segments
	}
	ctx, _ = utils.CustomContext(ctx)
	for i := range segments {
		txt, err := handler.Process(ctx, segments[i].Text)
		if err != nil {
			goapp.Log.Error().Err(err).Msg("handler err")
			continue
		}
		segments[i].Text = txt
	}
	return segments
}

func storeError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	goapp.Log.Error().Err(err).Msg("store error")
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func alignError(err error) error {
	if errors.Is(err, align.ErrInvalidSegment) || errors.Is(err, align.ErrInvalidChannel) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	goapp.Log.Error().Err(err).Msg("align error")
	return echo.NewHTTPError(http.StatusInternalServerError)
}
