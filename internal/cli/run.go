package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"abc-inventory-monitor/internal/alert"
	"abc-inventory-monitor/internal/config"
	"abc-inventory-monitor/internal/feed"
	"abc-inventory-monitor/internal/gate"
	"abc-inventory-monitor/internal/handler"
	mw "abc-inventory-monitor/internal/middleware"
	"abc-inventory-monitor/internal/mirror"
	"abc-inventory-monitor/internal/notify"
	"abc-inventory-monitor/internal/router"
	"abc-inventory-monitor/internal/service"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the monitor loop and admin server",
		Long: `Start the inventory monitor: the feed is downloaded and validated on
the configured interval, tracked-item restocks are evaluated per client,
and alerts are dispatched by SMS and email. The admin HTTP server runs
alongside the loop.

Example:
  abcmon run
  abcmon run --dry-run --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(rootOpts)
		},
	}
}

func runMonitor(opts *RootOptions) error {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.MustLoad()
	dryRun := opts.DryRun || cfg.App.DryRun
	verbose := opts.Verbose || cfg.App.Verbose
	log.Printf("Starting %s (env %s, dry-run %t)", cfg.App.Name, cfg.App.Environment, dryRun)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Outbound transports.
	smsSender := notify.NewTwilioSender(
		cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber,
		dryRun, verbose,
	)
	emailSender := notify.NewSMTPSender(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From,
		dryRun, verbose,
	)

	// SMS spool: Redis when enabled, in-memory otherwise.
	var spool gate.Spool
	if cfg.Redis.Enabled {
		redisSpool, err := gate.NewRedisSpool(gate.RedisSpoolConfig{
			Addr:      cfg.Redis.RedisAddress(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Printf("Warning: Redis spool unavailable, queued SMS will not survive restarts: %v", err)
		} else {
			spool = redisSpool
			log.Println("Redis spool initialized")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sendGate := gate.New(smsSender, spool, cfg.Alerts.MinSendDelay)
	if err := sendGate.Restore(ctx); err != nil {
		log.Printf("Warning: failed to restore spooled messages: %v", err)
	}

	// Feed pipeline.
	var downloader *feed.Downloader
	if cfg.Feed.LocalPath != "" {
		downloader = feed.NewLocalDownloader(cfg.Feed.LocalPath)
	} else {
		downloader = feed.NewDownloader(cfg.Feed.URL, cfg.Feed.DownloadTimeout)
	}
	validator := feed.NewValidator(cfg.Validator.MaxDrop, cfg.Validator.StableDownloads)
	snapshots := feed.NewSnapshotStore()

	var diffLog *feed.DiffLog
	if cfg.DiffLog.Enabled {
		diffLog = feed.NewDiffLog(cfg.DiffLog.Path)
	}

	// Preference-document mirror.
	var syncer *mirror.Syncer
	m, err := openMirror(cfg)
	if err != nil {
		log.Printf("Warning: %v", err)
	} else if m != nil {
		defer m.Close()
		syncer = mirror.NewSyncer(m, store)
		if err := syncer.SyncAll(ctx); err != nil {
			log.Printf("Warning: initial sync failed: %v", err)
		}
		syncer.StartWatch(ctx)
	}

	tracker := alert.NewTracker(store)
	evaluator := alert.NewEvaluator(store, store, tracker)
	dispatcher := alert.NewDispatcher(sendGate, emailSender,
		cfg.Alerts.MaxSMSChars, cfg.Alerts.MaxSMSItems, cfg.Alerts.EmailSubject)

	monitor := service.NewMonitor(service.Deps{
		Downloader: downloader,
		Validator:  validator,
		Snapshots:  snapshots,
		DiffLog:    diffLog,
		Store:      store,
		Tracker:    tracker,
		Evaluator:  evaluator,
		Dispatcher: dispatcher,
		Gate:       sendGate,
		Syncer:     syncer,
	}, cfg.Feed.CheckInterval, cfg.Feed.CycleSleep)

	// Admin HTTP server.
	var srv *http.Server
	if cfg.Server.Enabled {
		r := router.New(router.Config{
			Handler:        handler.New(monitor, cfg.App.Version),
			ClientHandler:  handler.NewClientHandler(store),
			MonitorHandler: handler.NewMonitorHandler(monitor),
			AuthMiddleware: mw.NewAdminAuth(cfg.Server.AdminKey),
		})
		srv = &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			log.Printf("Admin server listening on %s", cfg.Server.Address())
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		}()
	}

	go monitor.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}

	log.Println("Monitor stopped")
	return nil
}
