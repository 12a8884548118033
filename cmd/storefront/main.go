package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbanthreads/storefront/config"
	"github.com/urbanthreads/storefront/internal/adminapi"
	"github.com/urbanthreads/storefront/internal/app"
	"github.com/urbanthreads/storefront/internal/cart"
	"github.com/urbanthreads/storefront/internal/notify"
	"github.com/urbanthreads/storefront/internal/storeapi"
	"github.com/urbanthreads/storefront/internal/webserver"
)

var (
	cfile   = flag.String("c", "/etc/urbanthreads.yml", "config file")
	initdb  = flag.Bool("initdb", false, "drop and recreate the database tables, then exit")
	showver = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()
	if *showver {
		fmt.Println("urbanthreads storefront", version)
		return
	}

	cfg := config.LoadConfig(*cfile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	store := newCartStore(cfg)

	mailer := notify.NewMailer(cfg.Mail)
	application.SetStaleOrderNotifier(func(count int64) {
		if err := mailer.SendStaleOrderReminder(count); err != nil {
			zap.S().Warnf("stale order reminder failed: %v", err)
		}
	})

	dispatcher, err := notify.NewDispatcher(
		mailer,
		notify.NewWebhook(cfg.Webhook),
		func() string { return application.ConfigMgr().Rates().PickupAddress },
	)
	if err != nil {
		zap.S().Fatalf("init notification dispatcher: %v", err)
	}
	defer dispatcher.Release()
	if err := dispatcher.Subscribe(application.Bus()); err != nil {
		zap.S().Fatalf("subscribe notification dispatcher: %v", err)
	}

	webserver.Init(application)
	adminapi.InitRouter()
	storeapi.InitRouter(store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.StartBackgroundJobs(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Start(ctx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("server exited: %v", err)
	}
}

func newCartStore(cfg *config.AppConfig) cart.Store {
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Passwd,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			zap.S().Fatalf("connect redis: %v", err)
		}
		return cart.NewRedisStore(client, cfg.System.Appid)
	}
	return cart.NewMemoryStore()
}
