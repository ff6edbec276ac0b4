package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/http/handlers"
	"stockroom/internal/repos"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, the realtime channel and the low-stock sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		app := handlers.NewApp(s.deps, cfg)
		mux := http.NewServeMux()
		mux.Handle("/ws", s.channel)
		ws := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Printf("[http] listening on :%s", cfg.Port)
			return app.Listen(":" + cfg.Port)
		})
		g.Go(func() error {
			log.Printf("[ws] listening on %s", cfg.WSAddr)
			if err := ws.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error { return s.sweeper.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			log.Printf("[shutdown] draining")
			s.channel.Close()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := ws.Shutdown(sctx); err != nil {
				log.Printf("[shutdown] ws: %v", err)
			}
			return app.ShutdownWithTimeout(shutdownTimeout)
		})
		return g.Wait()
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one low-stock sweep and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		res, err := s.sweeper.RunNow(cmd.Context())
		if err != nil {
			return err
		}
		log.Printf("[sweep] scanned=%d created=%d suppressed=%d failed=%d in %s",
			res.Scanned, res.Created, res.Suppressed, res.Failed, res.Duration)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, inventory and vendors into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repos.Open(cfg.DBDriver, cfg.DBDSN, cfg.MaxConns)
		if err != nil {
			return err
		}
		defer db.Close()
		seeded, err := repos.Seed(db)
		if err != nil {
			return err
		}
		if !seeded {
			log.Printf("[seed] database already has users, nothing to do")
			return nil
		}
		log.Printf("[seed] demo data inserted; every account uses password %q", repos.SeedPassword)
		return nil
	},
}
