package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lifelink/internal/adapter/repo"
	"lifelink/internal/auth"
	"lifelink/internal/feedback"
	"lifelink/internal/http/handlers"
	httpapi "lifelink/internal/http/httpapi"
	"lifelink/internal/infra"
	"lifelink/internal/infra/geoip"
	"lifelink/internal/ledger"
	"lifelink/internal/middleware"
	"lifelink/internal/mirror"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open stores")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close stores")
		}
	}()

	m, err := buildMirror(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up external ledger")
	}

	policy := auth.NewPolicyStore(auth.DefaultPolicy(), logger)
	if cfg.RolePolicyFile != "" {
		policy, err = auth.LoadPolicyFile(cfg.RolePolicyFile, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RolePolicyFile).Msg("failed to load role policy")
		}
		if err := policy.Watch(ctx); err != nil {
			logger.Warn().Err(err).Msg("role policy changes will need a restart")
		}
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	authSvc := auth.NewService(stores.Users, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), policy, logger, auth.Options{
		AdminCode: cfg.AdminRegistrationCode,
	})
	ledgerSvc := ledger.NewService(stores.Ledger, m, logger, ledger.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		MirrorTimeout: cfg.MirrorTimeout,
	})
	app := handlers.NewApp(ledgerSvc, authSvc, feedback.NewService(stores.Feedback, logger), logger)

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,

		TrustProxyHeaders: cfg.TrustProxy,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("backend", stores.Backend).Bool("mirror", m != nil).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildMirror prefers Formance, then the contract gateway. Without either,
// records are kept locally only.
func buildMirror(ctx context.Context, cfg *infra.Config, logger infra.Logger) (mirror.Mirror, error) {
	switch {
	case cfg.FormanceStackURL != "":
		setupCtx, cancel := context.WithTimeout(ctx, cfg.MirrorTimeout)
		defer cancel()
		fm, err := mirror.NewFormanceMirror(setupCtx, mirror.FormanceConfig{
			StackURL:     cfg.FormanceStackURL,
			ClientID:     cfg.FormanceClientID,
			ClientSecret: cfg.FormanceClientSecret,
			Ledger:       cfg.FormanceLedger,
		}, logger)
		if err != nil {
			return nil, err
		}
		return fm, nil
	case cfg.ContractEndpointURL != "":
		client := &http.Client{Timeout: cfg.MirrorTimeout + 5*time.Second}
		return mirror.NewHTTPMirror(cfg.ContractEndpointURL, cfg.ContractAPIKey, client), nil
	default:
		return nil, nil
	}
}
