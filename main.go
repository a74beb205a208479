package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/config"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/live"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/report"
	"github.com/mbolis/formify/routes"
	"github.com/mbolis/formify/service"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("main:", err)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hub := live.NewHub(ctx)
	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name("formify"))
		if err != nil {
			return err
		}
		defer nc.Drain()
		if _, err := live.Bridge(nc, hub); err != nil {
			return err
		}
		log.Info("Fanning out report updates via " + cfg.NatsURL)
	}

	builder := report.NewBuilder(db)
	scheduler := report.NewScheduler(db, builder, report.NewDeliverer(report.NewSMTPMailer(cfg.SMTP), cfg.SMTP))
	if cfg.Reports.SweepInterval > 0 {
		go scheduler.Start(ctx, cfg.Reports.SweepInterval)
	}

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Services:     service.New(db, live.NewNATSNotifier(nc, hub)),
		Reports:      report.NewReports(db),
		Builder:      builder,
		Scheduler:    scheduler,
		Hub:          hub,
	}

	handler := routes.Wire(app)

	err = runServer(ctx, cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
