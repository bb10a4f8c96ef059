package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"foodhub/auth"
	"foodhub/catalog"
	"foodhub/config"
	"foodhub/database"
	"foodhub/fixtures"
	"foodhub/handlers"
	"foodhub/resolver"
	"foodhub/uploads"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cc)
		},
	}
}

func serve(ctx context.Context, cc *commandContext) error {
	cfg, log := cc.cfg, cc.log

	table, err := cc.fixtures()
	if err != nil {
		return err
	}
	res := resolver.New(table)

	store, svc, err := connectOrDegrade(ctx, cc, table, res)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn("closing document store", zap.Error(err))
		}
	}()

	ttl, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	disk, err := uploads.NewDisk(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	handler := newHandler(cfg, &handlers.Deps{
		Catalog:      svc,
		Accounts:     auth.NewAccounts(store.Vendors, auth.NewTokens(cfg.Auth.JWTSecret, ttl), log),
		Uploads:      disk,
		Files:        disk.Handler(),
		Log:          log.Named("http"),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("backend", store.Backend),
			zap.Strings("origins", cfg.Server.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connectOrDegrade opens the configured document store. When it cannot be
// reached the server keeps running on a memory store, and any memory store
// is seeded with the fixture dataset so the catalog is never empty.
func connectOrDegrade(ctx context.Context, cc *commandContext, table *fixtures.Table, res *resolver.Resolver) (*database.Store, *catalog.Service, error) {
	store, err := cc.connect(ctx)
	if err != nil {
		cc.log.Error("document store unavailable, serving bundled fixtures only", zap.Error(err))
		store = database.NewMemory()
	}

	svc := catalog.NewService(store, res, cc.log)
	if store.Backend == "memory" {
		if _, err := svc.Seed(ctx, table, false); err != nil {
			_ = store.Close(context.Background())
			return nil, nil, err
		}
	}
	return store, svc, nil
}

// newHandler builds the API routes behind the CORS allow-list.
func newHandler(cfg *config.Config, d *handlers.Deps) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:       cfg.Server.AllowedOrigins,
		AllowedMethods:       []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:       []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials:     true,
		OptionsSuccessStatus: http.StatusNoContent,
	})
	return c.Handler(handlers.Routes(d))
}
