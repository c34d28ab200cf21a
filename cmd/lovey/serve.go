package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PrinceLee1/lovey-dovey/internal/ai/remote"
	"github.com/PrinceLee1/lovey-dovey/internal/api"
	"github.com/PrinceLee1/lovey-dovey/internal/bus"
	"github.com/PrinceLee1/lovey-dovey/internal/config"
	"github.com/PrinceLee1/lovey-dovey/internal/domain"
	"github.com/PrinceLee1/lovey-dovey/internal/eventloop"
	"github.com/PrinceLee1/lovey-dovey/internal/launch"
	"github.com/PrinceLee1/lovey-dovey/internal/lobby"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime"
	"github.com/PrinceLee1/lovey-dovey/internal/realtime/pusher"
	"github.com/PrinceLee1/lovey-dovey/internal/ws"
)

const shutdownTimeout = 5 * time.Second

// serve wires the client for mode and runs the control server until ctx
// ends. arg is the room code, or the catalog game in solo mode.
func serve(ctx context.Context, cfg config.Config, mode ws.Mode, arg string) error {
	loop := eventloop.New(ctx)
	defer loop.Close()

	client := api.New(cfg.APIURL, cfg.Token, cfg.APITimeout)
	a := &app{mode: mode, cfg: cfg}
	if mode != ws.ModeSolo {
		a.code = arg
	}
	sock := ws.New(loop, a)

	a.router = launch.NewRouter(launch.Options{
		Sched:      loop,
		Source:     remote.New(client),
		Results:    client,
		Players:    [2]string{cfg.UserName, ""},
		ExportFile: cfg.Export(),
		OnChange:   sock.Broadcast,
		OnRelayed: func(o bus.OpenGame, res domain.Result, err error) {
			if err != nil {
				log.Warn().Err(err).Str("kind", string(o.Kind)).Msg("result not saved")
				return
			}
			log.Info().Str("kind", string(o.Kind)).Int("xp", res.XPEarned).Msg("result saved")
		},
	})

	var channels *realtime.Adapter
	if mode != ws.ModeSolo {
		pc := pusher.New(pusher.Options{
			Key:     cfg.PusherKey,
			Cluster: cfg.PusherCluster,
			Host:    cfg.PusherHost,
			Auth:    client,
		})
		pc.Start(ctx)
		defer pc.Close()
		channels = realtime.NewAdapter(pc, loop, cfg.EventNamespace)
	}

	var start func() error
	switch mode {
	case ws.ModeLobby:
		games := &bus.Topic[bus.OpenGame]{}
		defer a.router.Listen(games)()
		a.room = lobby.NewRoom(ctx, lobby.RoomOptions{
			Code:     a.code,
			Me:       cfg.Me(),
			API:      client,
			Channels: channels,
			Sched:    loop,
			Games:    games,
			AutoOpen: true,
			OnChange: sock.Broadcast,
			Timeout:  cfg.APITimeout,
		})
		start = func() error {
			a.room.Load(logLoad(a.code))
			return nil
		}
	case ws.ModeCouple:
		a.couple = lobby.NewCouple(ctx, lobby.CoupleOptions{
			Code:     a.code,
			Me:       cfg.Me(),
			API:      client,
			Channels: channels,
			Sched:    loop,
			OnChange: func() {
				a.coupleChanged()
				sock.Broadcast()
			},
			Timeout: cfg.APITimeout,
		})
		start = func() error {
			a.couple.Load(logLoad(a.code))
			return nil
		}
	default:
		start = func() error { return a.router.OpenCatalog(arg, "") }
	}

	res := make(chan error, 1)
	if err := loop.Call(ctx, func() { res <- start() }); err != nil {
		return err
	}
	if err := <-res; err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = loop.Call(stopCtx, func() {
			a.router.Close()
			if a.room != nil {
				a.room.Close()
			}
			if a.couple != nil {
				a.couple.Close()
			}
		})
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ws.RequestLogger())
	sock.Routes(r)
	io := sock.Mount(ctx, r)
	defer io.Close()

	httpSrv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()
	log.Info().Str("addr", cfg.Addr()).Str("mode", string(mode)).Str("code", a.code).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(stopCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("shut down")
	return nil
}

func logLoad(code string) func(error) {
	return func(err error) {
		if err != nil {
			log.Warn().Err(err).Str("code", code).Msg("initial load failed")
			return
		}
		log.Info().Str("code", code).Msg("room loaded")
	}
}
