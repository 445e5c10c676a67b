package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	html "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"detaltap/internal/config"
	"detaltap/internal/domain"
	"detaltap/internal/http/handlers"
	applog "detaltap/internal/log"
	"detaltap/internal/media"
	"detaltap/internal/metrics"
	"detaltap/internal/present"
	"detaltap/internal/repos"
	"detaltap/internal/services"
	"detaltap/internal/telegram"
)

func main() {
	hashKey := flag.String("hash-admin-key", "", "print the bcrypt hash of an admin key for ADMIN_KEY_HASH and exit")
	flag.Parse()
	if *hashKey != "" {
		h, err := handlers.HashAdminKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	if err := run(); err != nil {
		applog.Error(context.Background(), "server.exit", err, nil)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	closeLog, err := applog.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		// keep going on stdout alone
		applog.Error(context.Background(), "log.file.open.fail", err, map[string]any{"file": cfg.LogFile})
	}
	defer closeLog()
	defer func() { _ = applog.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	listings := repos.NewListingRepo(db)
	bans := repos.NewBanRepo(db)
	var sessions domain.SessionStore
	switch cfg.SessionBackend {
	case "sqlite":
		sessions = repos.NewSessionRepo(db, cfg.SessionTTL)
	default:
		sessions = repos.NewMemorySessionRepo(cfg.SessionTTL)
	}

	images, err := media.NewFileStore(cfg.MediaDir)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := telegram.NewClient(cfg.BotToken, cfg.BotAPIURL)
	sender := telegram.NewSender(client, images)
	format := present.New(cfg.Currency)
	gate := services.NewGate(cfg.AdminIDs, listings, bans, sessions)
	throttle := services.NewThrottle(cfg.UserRate, cfg.UserBurst)

	engine := services.NewEngine(services.EngineDeps{
		Listings:   listings,
		Sessions:   sessions,
		Transport:  sender,
		Images:     images,
		Gate:       gate,
		Format:     format,
		Metrics:    m,
		Throttle:   throttle,
		PageSize:   cfg.PageSize,
		MaxResults: cfg.MaxResults,
	})
	janitor := &services.Janitor{Sessions: sessions, Throttle: throttle, Metrics: m, Interval: cfg.SweepInterval}

	deps := handlers.NewDeps(cfg, engine, gate, images, format, m, reg)
	app := handlers.NewApp(deps, html.New("./web/templates", ".html"))

	applog.Info(ctx, "server.start", map[string]any{
		"port": cfg.Port, "mode": cfg.BotMode, "sessions": cfg.SessionBackend, "admins": len(cfg.AdminIDs),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	g.Go(func() error { return janitor.Run(gctx) })

	switch cfg.BotMode {
	case "webhook":
		g.Go(func() error {
			if err := client.SetWebhook(gctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			applog.Info(gctx, "telegram.webhook.set", map[string]any{"url": cfg.WebhookURL})
			return nil
		})
	default:
		poller := telegram.NewPoller(client, engine)
		g.Go(func() error { return poller.Run(gctx) })
	}

	err = g.Wait()
	applog.Info(context.Background(), "server.stop", nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
