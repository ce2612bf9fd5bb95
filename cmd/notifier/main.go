package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/ariefcatur/go-storefront-orders/internal/telemetry"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	logx.Setup(cfg.LogLevel, cfg.ServiceName+"-notifier")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName+"-notifier", cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("tracer")
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Orders:    &orders.Repo{DB: db},
		Mailer:    notify.NewResendMailer(cfg.ResendKey, cfg.MailFrom, cfg.EmailTO),
		Dedup:     &redisx.Dedup{Client: rdb},
		StoreName: cfg.StoreName,
		Currency:  cfg.Currency,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.Brokers(), cfg.NotifyGroup, orders.TopicPaymentCompleted, cfg.Workers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.WithFields(log.Fields{
			"group": cfg.NotifyGroup, "topic": orders.TopicPaymentCompleted, "workers": cfg.Workers,
		}).Info("notifier consumer started")
		if err := cons.Start(ctx, svc.HandlePaymentCompleted); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done
}
