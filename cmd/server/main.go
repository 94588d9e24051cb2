package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"

	"github.com/vitalscan/backend/account"
	"github.com/vitalscan/backend/apikey"
	"github.com/vitalscan/backend/config"
	"github.com/vitalscan/backend/middleware/bearer"
	"github.com/vitalscan/backend/notify"
	"github.com/vitalscan/backend/profile"
	"github.com/vitalscan/backend/scan"
	"github.com/vitalscan/backend/storage"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("vitalscan"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	if err := run(lgr); err != nil {
		lgr.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(lgr *glog.BaseLogger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := storage.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := account.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := account.NewTokenIssuer()
	sessions := account.NewSessionIssuer(
		[]byte(cfg.SessionSigningKey),
		cfg.SessionTTL,
		cfg.AppBaseURL,
	)

	var notifier account.Notifier
	switch cfg.MailMode {
	case "smtp":
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, cfg.AppBaseURL)
	default:
		notifier = notify.LogNotifier{BaseURL: cfg.AppBaseURL}
	}

	app := fiber.New(fiber.Config{
		AppName:      "vitalscan",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	account.RegisterAuthRoutes(app,
		account.WithRepository(repo),
		account.WithTokenIssuer(tokens),
		account.WithSessionIssuer(sessions),
		account.WithControllerNotifier(notifier),
		account.WithControllerLogger(printfLogger{lgr.GetLogger("auth")}),
		account.WithControllerDebug(cfg.Debug),
	)

	guard := bearer.New(bearer.Config{
		Verifier: sessions,
	})

	profile.RegisterProfileRoutes(app, guard, profile.NewProfilesRepository(db))
	scan.RegisterScanRoutes(app, guard, scan.NewResultsRepository(db))
	apikey.RegisterKeyRoutes(app, guard, apikey.NewKeysRepository(db))

	errs := make(chan error, 1)
	go func() {
		lgr.Info("listening", "addr", cfg.HTTPAddr)
		errs <- app.Listen(cfg.HTTPAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-quit:
		lgr.Info("shutting down", "signal", sig.String())
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// printfLogger adapts the structured logger to the printf-style interface
// the account package expects.
type printfLogger struct {
	lgr glog.Logger
}

func (l printfLogger) Debug(format string, args ...any) { l.lgr.Debug(fmt.Sprintf(format, args...)) }
func (l printfLogger) Info(format string, args ...any)  { l.lgr.Info(fmt.Sprintf(format, args...)) }
func (l printfLogger) Warn(format string, args ...any)  { l.lgr.Warn(fmt.Sprintf(format, args...)) }
func (l printfLogger) Error(format string, args ...any) { l.lgr.Error(fmt.Sprintf(format, args...)) }
