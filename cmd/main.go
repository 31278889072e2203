package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"mess_market/internal/config"
	"mess_market/internal/domain/entity"
	"mess_market/internal/domain/service/classify"
	"mess_market/internal/domain/service/sale"
	"mess_market/internal/menu"
	"mess_market/internal/metrics"
	"mess_market/internal/schedule"
	"mess_market/internal/transport/bot"
	"mess_market/pkg/contextx"
	"mess_market/pkg/logx"
	pkgmetrics "mess_market/pkg/metrics"
	"mess_market/pkg/probe"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(log)

	if err := run(ctx, log); err != nil {
		log.Error("application failed", logx.Error(err))
		os.Exit(1)
	}

	log.Info("application stopped")
}

func run(ctx context.Context, log *slog.Logger) error {
	// 1. Config and per-run menu.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	opts, err := menu.Show(cfg.Sale, config.MealWindows(), time.Now(), os.Stdin, os.Stdout)
	if err != nil {
		return fmt.Errorf("run menu: %w", err)
	}

	cfg.Sale.EnableNegotiation = opts.EnableNegotiation
	cfg.Sale.StartingPrice = opts.StartingPrice

	log = log.With(
		slog.String(logx.FieldAppName, cfg.App.Name),
		slog.String(logx.FieldAppVersion, cfg.App.Version),
		slog.String(logx.FieldMeal, opts.Meal),
		slog.String(logx.FieldMess, opts.Mess),
	)

	traceID := contextx.TraceID(xid.New().String())

	log = log.With(slog.String(logx.FieldTraceID, traceID.String()))

	ctx = contextx.WithLogger(ctx, log)
	ctx = contextx.WithTraceID(ctx, traceID)

	// 2. Announcement schedule. Fatal before any timer is armed.
	sched, err := schedule.Build(time.Now(), schedule.BuildParams{
		Meal:          opts.Meal,
		Windows:       config.MealWindows(),
		NumMessages:   opts.NumMessages,
		StartingPrice: opts.StartingPrice,
		PriceDrop:     cfg.Sale.PriceDrop,
	})
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}

	log.Info("schedule built",
		slog.Int("steps", len(sched.Steps)),
		slog.Time("stop-time", sched.StopTime),
	)

	// 3. Telegram transport.
	tgBot, err := telego.NewBot(cfg.Telegram.BotToken, telego.WithDiscardLogger())
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	sender := bot.NewSender(tgBot, cfg.Telegram.ChannelCacheTTL)

	// 4. Sale machinery. The driver and coordinator reference each other
	// through closures; nothing fires until the transport is up.
	saleMetrics := metrics.NewSale(prometheus.DefaultRegisterer)

	var coordinator *sale.Coordinator

	groupChannel := entity.ChannelRef(cfg.Telegram.GroupChatID)

	driver := schedule.NewDriver(nil, schedule.DriverOptions{
		Render: func(price int) string {
			return config.SellMessage(opts.Mess, opts.Meal, price)
		},
		Announce: func(ctx context.Context, price int, text string) {
			saleMetrics.CurrentPrice.Set(float64(price))
			saleMetrics.Announcements.Inc()

			if err := sender.SendText(ctx, groupChannel, text); err != nil {
				log.Error("announce to group", logx.Error(err))
			}
		},
		OnAutoStop: func(ctx context.Context) {
			coordinator.HandleUnsoldStop(ctx)
		},
		IsSold: func() bool {
			return coordinator.IsSold()
		},
	})

	coordinator = sale.NewCoordinator(cfg.Sale, sender, driver, nil, saleMetrics)

	classifier := classify.New(cfg.Sale.BuyerKeywords, cfg.Sale.DoneKeywords, cfg.Sale.EnableNegotiation)

	// 5. Servers and the bot loop.
	probeServer := probe.NewServer(cfg.Probe.ListenAddress, probe.Options{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
	})
	prometheusServer := pkgmetrics.NewPrometheusServer(cfg.Metrics.ListenAddress)

	botTransport := bot.New(tgBot, sender, classifier, coordinator, func() {
		probeServer.SetReady(true)
		driver.Start(ctx, sched, opts.StartingPrice)
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return probeServer.Run(groupCtx) })
	group.Go(func() error { return prometheusServer.Run(groupCtx) })
	group.Go(func() error { return botTransport.Run(groupCtx) })

	err = group.Wait()

	driver.Stop()

	fmt.Fprintln(os.Stdout, coordinator.Report())

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("group.Wait: %w", err)
	}

	return nil
}
