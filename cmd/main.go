package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/juliusdelta/oatmeal/internal/db"
	"github.com/juliusdelta/oatmeal/internal/handlers"
	"github.com/juliusdelta/oatmeal/internal/service"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	data := &service.Data{}
	data.Ctx = ctx
	data.Port = cfg.GetInt("port")

	store, err := newStore(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init store")
	}
	defer store.Close()
	data.Store = store

	hList, err := handlers.NewListHandler()
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init list handler")
	}
	hList.Add(handlers.NewCleaner())
	if url := cfg.GetString("punctuator.url"); url != "" {
		punctuator, err := handlers.NewPunctuator(url)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init punctuator")
		}
		hList.Add(punctuator)
	}
	data.TextHandler = hList

	doneCh, err := service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

type sessionStore interface {
	service.SessionStore
	Close() error
}

func newStore(ctx context.Context) (sessionStore, error) {
	cfg := goapp.Config
	storeType := cfg.GetString("store.type")
	goapp.Log.Info().Str("type", storeType).Msg("store")
	switch storeType {
	case "redis":
		return db.NewRedisSessionStore(cfg.GetString("redis.url"), cfg.GetString("redis.encryptionKey"))
	case "sqlite":
		return db.NewSQLiteSessionStore(ctx, cfg.GetString("sqlite.path"))
	default:
		return db.NewMemorySessionStore(), nil
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
    OATMEAL TRANSCRIPT SERVICE v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/juliusdelta/oatmeal"))
}
