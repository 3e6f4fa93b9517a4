package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/juliusdelta/oatmeal/internal/api"
	"github.com/juliusdelta/oatmeal/internal/domain"
	"github.com/juliusdelta/oatmeal/internal/handlers"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SessionStore keeps sessions, their channel segments and captured audio.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	SaveSegments(ctx context.Context, id, channel string, segments []api.Segment) error
	GetSegments(ctx context.Context, id, channel string) ([]api.Segment, error)
	SaveAudio(ctx context.Context, id, channel string, chunks [][]byte) error
	GetAudio(ctx context.Context, id, channel string) ([]byte, error)
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Store       SessionStore
	TextHandler handlers.Handler
	Ctx         context.Context
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting oatmeal service at %d", data.Port)
	if err := validate(data); err != nil {
		return nil, err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		if err := gracehttp.Serve(e.Server); err != nil {
			goapp.Log.Error().Err(err).Msg("can't start web server")
		}
		goapp.Log.Info().Msg("exit http routine")
	}()
	return res, nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("oatmeal", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/live", live(data))
	e.POST("/sessions", createSession(data))
	e.POST("/sessions/:id/segments/:channel", saveSegments(data))
	e.POST("/sessions/:id/audio/:channel", saveAudio(data))
	e.GET("/sessions/:id/transcript", getTranscript(data))
	e.GET("/sessions/:id/transcript/enhanced", getEnhancedTranscript(data))
	e.GET("/client/ws/segments", subscribeSegments(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func validate(data *Data) error {
	if data.Store == nil {
		return fmt.Errorf("no Store")
	}
	return nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func subscribeSegments(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		handler := newWSSegmentHandler(data.Store, data.TextHandler)
		return handler.HandleConnection(data.Ctx, ws, c.Request())
	}
}
