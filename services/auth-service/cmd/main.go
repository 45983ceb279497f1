package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/mangahub-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/mangahub-api/shared/auth"
	"github.com/vasapolrittideah/mangahub-api/shared/cache"
	"github.com/vasapolrittideah/mangahub-api/shared/database"
	"github.com/vasapolrittideah/mangahub-api/shared/discovery"
	"github.com/vasapolrittideah/mangahub-api/shared/logger"
	"github.com/vasapolrittideah/mangahub-api/shared/mailer"
	"github.com/vasapolrittideah/mangahub-api/shared/provider"
	"github.com/vasapolrittideah/mangahub-api/shared/security"
	"github.com/vasapolrittideah/mangahub-api/shared/utilities"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.NewAuthServiceConfig()
	if err != nil {
		bootLogger := logger.NewLogger("auth-service", config.EnvProduction, "info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.NewLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := database.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := database.Disconnect(mongoClient, shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}()

	passwordHasher, err := security.NewPasswordHasher(cfg.PasswordHashAlgorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create password hasher")
	}

	jwtAuth := auth.NewJWTAuthenticator(cfg.ServiceName, cfg.Token.Issuer)
	tokenService, err := usecase.NewTokenService(jwtAuth, cfg.Token, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token service")
	}

	userRepo := repository.NewUserMongoRepository(ctx, log, mongoClient.Database(cfg.Mongo.Database))
	codeRepo := repository.NewVerificationCodeRedisRepository(redisClient)
	stateRepo := repository.NewOAuthStateRedisRepository(redisClient)

	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		codeRepo,
		tokenService,
		passwordHasher,
		usecase.NewVerificationSender(mailer.NewMailer(log)),
		log,
	)
	oauthUsecase := usecase.NewOAuthUsecase(
		userRepo,
		stateRepo,
		usecase.NewIdentityResolver(userRepo, log),
		newProviderRegistry(cfg, log),
		tokenService,
		cfg.OAuth.Timeout,
		log,
	)

	authHandler, err := handler.NewAuthHTTPHandler(authUsecase, oauthUsecase, tokenService, handler.Options{
		BasePath:    cfg.BasePath,
		FrontendURL: cfg.FrontendURL,
		Production:  cfg.IsProduction(),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create http handler")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.NewRouter(authHandler, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	grpcServer, healthServer := startGRPCHealthServer(cfg, log)
	registrar := registerWithConsul(cfg, log)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("auth-service stopped")
}

// newProviderRegistry registers the OAuth providers that have credentials configured.
func newProviderRegistry(cfg *config.AuthServiceConfig, log *zerolog.Logger) *provider.Registry {
	var providers []provider.OAuthProvider

	if cfg.OAuth.GoogleClientID != "" {
		google, err := provider.NewGoogleOAuthProvider(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.APIURL("/auth/google/callback"),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create google provider")
		}
		providers = append(providers, google)
	}

	if cfg.OAuth.FacebookAppID != "" {
		facebook, err := provider.NewFacebookOAuthProvider(
			cfg.OAuth.FacebookAppID,
			cfg.OAuth.FacebookAppSecret,
			cfg.APIURL("/auth/facebook/callback"),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create facebook provider")
		}
		providers = append(providers, facebook)
	}

	for _, p := range providers {
		log.Info().Str("provider", p.Name()).Msg("oauth provider enabled")
	}

	return provider.NewRegistry(providers...)
}

func startGRPCHealthServer(cfg *config.AuthServiceConfig, log *zerolog.Logger) (*grpc.Server, *health.Server) {
	if cfg.GRPCPort == "" {
		return nil, nil
	}

	listener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen for grpc")
	}

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer, cfg.ServiceName)

	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health server started")
		if err := grpcServer.Serve(listener); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	return grpcServer, healthServer
}

func registerWithConsul(cfg *config.AuthServiceConfig, log *zerolog.Logger) *discovery.ConsulRegistrar {
	if cfg.ConsulAddr == "" {
		return nil
	}

	port, err := strconv.Atoi(cfg.HTTPPort)
	if err != nil {
		log.Error().Err(err).Msg("invalid http port, skipping consul registration")
		return nil
	}

	host, err := os.Hostname()
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve hostname, skipping consul registration")
		return nil
	}

	registrar, err := discovery.NewConsulRegistrar(cfg.ConsulAddr, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create consul registrar")
		return nil
	}

	err = registrar.Register(discovery.Registration{
		Name:      cfg.ServiceName,
		Host:      host,
		Port:      port,
		HealthURL: "http://" + net.JoinHostPort(host, cfg.HTTPPort) + "/health",
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to register with consul")
		return nil
	}

	return registrar
}
