package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/auth"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/config"
	"github.com/ariefcatur/go-storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/logx"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payments"
	"github.com/ariefcatur/go-storefront-orders/internal/postgres"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/ariefcatur/go-storefront-orders/internal/telemetry"
	"github.com/ariefcatur/go-storefront-orders/internal/webhook"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:  "api",
		Usage: "storefront order and payment API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back every migration"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := load()
					if err != nil {
						return err
					}
					return postgres.Migrate(cfg.PostgresDSN, !c.Bool("down"))
				},
			},
			{
				Name:  "grant-admin",
				Usage: "give a user the admin role",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
				},
				Action: grantAdmin,
			},
			{
				Name:  "issue-token",
				Usage: "print a signed access token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 12 * time.Hour},
				},
				Action: func(c *cli.Context) error {
					cfg, err := load()
					if err != nil {
						return err
					}
					if cfg.JWTSecret == "" {
						return errors.New("AUTH_JWT_SECRET is not set")
					}
					tok, err := auth.Issue([]byte(cfg.JWTSecret), c.String("user"), c.Duration("ttl"), time.Now())
					if err != nil {
						return err
					}
					fmt.Println(tok)
					return nil
				},
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("api exited")
	}
}

func load() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, errors.Wrap(err, "load config")
	}
	logx.Setup(cfg.LogLevel, cfg.ServiceName)
	return cfg, nil
}

func grantAdmin(c *cli.Context) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	db, err := postgres.Connect(c.Context, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := (&auth.RoleRepo{DB: db}).Grant(c.Context, c.String("user"), orders.RoleAdmin); err != nil {
		return errors.Wrap(err, "grant admin")
	}
	log.WithField("user_id", c.String("user")).Info("admin role granted")
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	dedup := &redisx.Dedup{Client: rdb}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.Brokers(), 1024)
	prod.Start()
	bus := kafkax.EventBus{P: prod}

	repo := &orders.Repo{DB: db}
	mailer := notify.NewResendMailer(cfg.ResendKey, cfg.MailFrom, cfg.EmailTO)
	notifier := &notify.Service{
		Orders:    repo,
		Mailer:    mailer,
		Dedup:     dedup,
		StoreName: cfg.StoreName,
		Currency:  cfg.Currency,
	}
	async := &notify.Async{Service: notifier, Timeout: cfg.EmailTO + 5*time.Second}

	processor := &webhook.Processor{
		Verifier: payments.Verifier{Secret: cfg.StripeSecret},
		Store:    repo,
		Dedup:    dedup,
		Events:   bus,
		Producer: cfg.ServiceName,
	}
	switch cfg.NotifyMode {
	case config.NotifyInline:
		processor.Notifier = async
	case config.NotifyKafka:
		// cmd/notifier consumes order.payment.completed
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", cfg.NotifyMode)
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Orders: &orders.Service{
		Store:    repo,
		Gateway:  payments.NewGateway(cfg.StripeKey, cfg.PaymentTO),
		Events:   bus,
		Idem:     &redisx.Idempotency{Client: rdb},
		Currency: cfg.Currency,
		Prefix:   cfg.OrderPrefix,
		Producer: cfg.ServiceName,
	}}).Register(router)
	(&httpx.WebhookHandler{Processor: processor}).Register(router)
	(&httpx.AdminHandler{
		Auth:       &auth.Resolver{Secret: []byte(cfg.JWTSecret), Roles: &auth.RoleRepo{DB: db}},
		Admin:      &orders.Admin{Store: repo, Events: bus, Producer: cfg.ServiceName},
		Notifier:   notifier,
		Categories: &catalog.Repo{DB: db},
	}).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "notify_mode": cfg.NotifyMode}).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err = <-errCh:
		log.WithError(err).Error("listen")
	}
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	async.Wait()      // kirim email yang masih jalan
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	return err
}
