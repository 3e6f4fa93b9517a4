package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/gorilla/websocket"
	"github.com/juliusdelta/oatmeal/internal/align"
	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/handlers"
	"github.com/juliusdelta/oatmeal/internal/utils"
)

type data struct {
	t   int
	msg []byte
}

// wsSegmentHandler receives one channel's capture stream over a
// websocket: text frames carry segment JSON, binary frames carry raw PCM.
// Everything is flushed to the store on a stop event or disconnect.
type wsSegmentHandler struct {
	store       SessionStore
	textHandler handlers.Handler
}

func newWSSegmentHandler(store SessionStore, textHandler handlers.Handler) *wsSegmentHandler {
	return &wsSegmentHandler{store: store, textHandler: textHandler}
}

// HandleConnection loops until the client stops the session or disconnects
func (kp *wsSegmentHandler) HandleConnection(ctx context.Context, conn *websocket.Conn, req *http.Request) error {
	q := req.URL.Query()
	id, channel := q.Get("session"), q.Get("channel")
	goapp.Log.Info().Str("session", id).Str("channel", channel).Msg("got")
	if !align.ValidChannel(channel) {
		return fmt.Errorf("unknown channel: %s", channel)
	}
	if _, err := kp.store.GetSession(ctx, id); err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	defer conn.Close()

	var segments []api.Segment
	var audio [][]byte
	ctx, _ = utils.CustomContext(ctx)

	flush := func() error {
		if err := kp.store.SaveSegments(ctx, id, channel, segments); err != nil {
			return fmt.Errorf("save segments: %w", err)
		}
		if len(audio) > 0 {
			if err := kp.store.SaveAudio(ctx, id, channel, audio); err != nil {
				return fmt.Errorf("save audio: %w", err)
			}
		}
		goapp.Log.Info().Str("session", id).Str("channel", channel).
			Int("segments", len(segments)).Int("audio_chunks", len(audio)).Msg("flushed")
		return nil
	}

	readCh := readWebSocket(ctx, conn)
	for {
		var d data
		var ok bool
		select {
		case <-ctx.Done():
			goapp.Log.Info().Msg("context canceled")
			return flush()
		case d, ok = <-readCh:
			if !ok {
				goapp.Log.Info().Msg("channel closed")
				return flush()
			}
		}
		goapp.Log.Debug().Int("type", d.t).Send()
		if d.t == websocket.BinaryMessage {
			audio = append(audio, d.msg)
			continue
		}
		if d.t != websocket.TextMessage {
			continue
		}
		goapp.Log.Trace().Str("msg", string(d.msg)).Send()
		var msg api.WsMsg
		if err := json.Unmarshal(d.msg, &msg); err != nil {
			goapp.Log.Error().Err(err).Msg("decode err")
			continue
		}
		if msg.Event == api.EventStop {
			if err := flush(); err != nil {
				return err
			}
			if err := conn.WriteJSON(api.WsMsg{Event: api.EventStopped}); err != nil {
				goapp.Log.Error().Err(err).Msg("write error")
			}
			return nil
		}
		if msg.Timestamp == nil {
			goapp.Log.Warn().Str("event", msg.Event).Msg("frame without timestamp")
			continue
		}
		seg := api.Segment{Timestamp: *msg.Timestamp, Text: msg.Text}
		if kp.textHandler != nil {
			if txt, err := kp.textHandler.Process(ctx, seg.Text); err != nil {
				goapp.Log.Error().Err(err).Msg("handler err")
			} else {
				seg.Text = txt
			}
		}
		segments = append(segments, seg)
	}
}

func readWebSocket(ctx context.Context, in *websocket.Conn) <-chan data {
	resCh := make(chan data)
	go func() {
		defer close(resCh)
		defer goapp.Log.Debug().Msg("read routine ended")
		for {
			mType, message, err := in.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) ||
					errors.Is(err, net.ErrClosed) {
					goapp.Log.Info().Msg("connection closed")
					return
				}
				goapp.Log.Error().Err(err).Send()
				return
			}
			msg := data{t: mType, msg: message}

			select {
			case resCh <- msg:
				timer := time.NewTimer(20 * time.Millisecond)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return resCh
}
