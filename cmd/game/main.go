package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Crater-Duel/internal/audio"
	"github.com/Garsondee/Crater-Duel/internal/game"
	"github.com/Garsondee/Crater-Duel/internal/netlink"
)

func main() {
	var (
		mapID   = flag.String("map", "flats", "map id ("+strings.Join(game.MapIDs(), ", ")+")")
		variant = flag.String("variant", "", "terrain variant; empty picks the map's first")
		resID   = flag.String("res", "2", "resolution preset: 1=800x600 2=1024x768 3=1280x720")
		dpr     = flag.Float64("dpr", 1, "device pixel ratio")
		url     = flag.String("url", "", "relay websocket url; empty plays hot-seat on this machine")
		id      = flag.String("id", "p1", "entity controlled from this window when -url is set")
		serve   = flag.String("serve", "", "run a relay on this address instead of a window")
		mute    = flag.Bool("mute", false, "start with sound off")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *serve != "" {
		runRelay(ctx, *serve, logger)
		return
	}

	res, err := game.ResolutionByID(*resID)
	if err != nil {
		log.Fatal(err)
	}
	cfg := game.DefaultConfig()
	game.WithResolution(res)(&cfg)
	game.WithDevicePixelRatio(*dpr)(&cfg)

	mp, err := game.LoadMap(*mapID)
	if err != nil {
		log.Fatal(err)
	}

	sounds := audio.NewManager()
	if err := sounds.Init(); err != nil {
		logger.Warn("sound disabled", "err", err)
	}
	defer sounds.Close()
	sounds.SetMuted(*mute)

	session := game.Session{
		Config:  cfg,
		Map:     mp,
		Variant: *variant,
		Logger:  logger,
		Journal: game.NewMatchLog(*verbose),
	}
	host := game.Host{
		CopyReport: clipboard.WriteAll,
		ToggleMute: func() bool {
			sounds.SetMuted(!sounds.Muted())
			return sounds.Muted()
		},
	}

	var relay *netlink.Client
	if *url == "" {
		lb := &game.Loopback{}
		session.HotSeat = true
		session.Outbox = lb
		host.Poll = lb.Drain
	} else {
		relay, err = netlink.NewClient(ctx, netlink.URLDialer(*url), logger)
		if err != nil {
			log.Fatal(err)
		}
		defer relay.Close()
		session.ClientID = *id
		session.Outbox = relay
		host.Redial = relay.Redial
	}

	entities := []game.EntityInit{
		{ID: "p1", Name: "Player 1", Direction: game.Right},
		{ID: "p2", Name: "Player 2", Direction: game.Left},
	}
	hooks := sounds.Hooks(game.Hooks{
		OnMatchOver: func(winner string) { logger.Info("match over", "winner", winner) },
	})
	m, err := game.NewMatch(session, entities, hooks)
	if err != nil {
		log.Fatal(err)
	}

	if relay != nil {
		host.Poll = func() []game.Event {
			if err := relay.Err(); err != nil && !m.Disconnected() {
				logger.Warn("relay connection lost", "err", err)
				m.Disconnect()
			}
			return relay.Poll()
		}
	}

	g := game.New(m, host)
	ebiten.SetWindowTitle("Crater Duel: " + mp.Name)
	ebiten.SetWindowSize(g.WindowSize())
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

func runRelay(ctx context.Context, addr string, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: netlink.NewHub(logger)}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info("relay listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
