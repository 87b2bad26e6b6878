// Package server initializes and runs the account service: it opens the
// database and applies migrations, builds the object store, notifier and
// metrics, serves the HTTP API and shuts everything down on a signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/cryptox"
	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/dmitrijs2005/webapp/internal/server/config"
	"github.com/dmitrijs2005/webapp/internal/server/health"
	"github.com/dmitrijs2005/webapp/internal/server/httpapi"
	"github.com/dmitrijs2005/webapp/internal/server/metrics"
	"github.com/dmitrijs2005/webapp/internal/server/notify"
	"github.com/dmitrijs2005/webapp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webapp/internal/server/services"
	"github.com/dmitrijs2005/webapp/internal/server/storage"
)

const (
	pingTimeout     = 2 * time.Second
	metadataTimeout = 2 * time.Second
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	closeLog    func() error
	db          *sql.DB
	userService *services.UserService
	monitor     *health.Monitor
	handler     http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, closeLog, err := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app, err := newApp(ctx, c, logger)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	app.closeLog = closeLog
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		UsePathStyle: c.S3UsePathStyle,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	rec := metrics.NewPrometheusRecorder(c.MetricsNamespace, instanceID(ctx, c))

	us, err := services.NewUserService(db, rm, cryptox.NewBcryptHasher(), newSender(c, logger), rec, logger, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("user service init error: %w", err)
	}
	is := services.NewImageService(db, rm, store, rec, logger, c)

	reporter := health.NewReporter(db, pingTimeout, rec)
	monitor := health.NewMonitor(reporter, logger.With("module", "health"), c.HealthCheckInterval)

	api := httpapi.NewServer(us, is, reporter, rec, rec.Handler(), logger)

	return &App{
		config:      c,
		logger:      logger,
		closeLog:    func() error { return nil },
		db:          db,
		userService: us,
		monitor:     monitor,
		handler:     api.Router(),
	}, nil
}

// newSender picks SMTP delivery when a host is configured and logs the
// message otherwise.
func newSender(c *config.Config, logger logging.Logger) notify.Sender {
	if c.SMTPHost == "" {
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
}

func instanceID(ctx context.Context, c *config.Config) string {
	if !c.InstanceMetadata {
		return common.DefaultInstanceID
	}
	return metrics.InstanceID(ctx, metadataTimeout)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "HTTP server listening", "addr", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.monitor.Start(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown(context.Background())
}

// shutdown releases resources once the HTTP server has stopped. Pending
// verification emails are allowed to finish first.
func (app *App) shutdown(ctx context.Context) {
	app.monitor.Stop()
	app.userService.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.closeLog()
}
