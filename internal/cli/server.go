package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/auth"
	"github.com/criteo/social-connect/internal/config"
	"github.com/criteo/social-connect/internal/credentials"
	"github.com/criteo/social-connect/internal/launcher"
	"github.com/criteo/social-connect/internal/oauth"
	"github.com/criteo/social-connect/internal/server"
	"github.com/criteo/social-connect/internal/server/handlers"
	"github.com/criteo/social-connect/internal/storage"
)

// Version is set by the cmd package at startup
var Version = "dev"

var configFile string

// ServerCmd represents the server command
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the social-connect daemon",
	Long: `Start the HTTP daemon that stores platform credentials, starts OAuth
authorization flows in the browser and receives their callbacks.`,
	RunE: runServer,
}

func init() {
	ServerCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional, can also use SOCIAL_CONNECT_CONFIG_FILE env var)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		configFile = os.Getenv("SOCIAL_CONNECT_CONFIG_FILE")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := server.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("Server starting",
		"version", Version,
		"address", cfg.Address(),
		"config_file", configFile,
		"storage_uri", cfg.Storage.URI,
		"storage_token", cfg.MaskToken(),
		"auth_type", cfg.Auth.Type,
		"launcher", cfg.OAuth.Launcher)

	srv, err := buildServer(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Server ready to accept connections",
		"address", "http://"+cfg.Address(),
		"redirect_base_url", cfg.OAuth.RedirectBaseURL)

	if err := srv.Start(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}

	return nil
}

// buildServer wires storage, authentication, the OAuth flow and the handlers
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.Open(ctx, cfg.Storage.URI, cfg.Storage.Token, logger)
	if err != nil {
		logger.Error("Failed to initialize storage",
			"error", err,
			"storage_uri", cfg.Storage.URI)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	authenticator, err := auth.New(cfg.Auth.Type, cfg.Auth.UsersFile, logger)
	if err != nil {
		store.Close()
		logger.Error("Failed to initialize authentication",
			"error", err,
			"auth_type", cfg.Auth.Type)
		return nil, fmt.Errorf("failed to initialize authentication: %w", err)
	}

	clients, err := oauth.LoadClients(cfg.OAuth.ClientsFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load OAuth clients: %w", err)
	}
	if len(clients.Configured()) == 0 {
		logger.Warn("No OAuth clients configured; only manual credential import is available")
	}

	flow, err := oauth.NewFlow(oauth.Config{
		Clients:         clients,
		RedirectBaseURL: cfg.OAuth.RedirectBaseURL,
		StateTTL:        cfg.OAuth.StateTTL,
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize OAuth flow: %w", err)
	}

	urlLauncher, err := launcher.New(cfg.OAuth.Launcher, logger, os.Stderr)
	if err != nil {
		store.Close()
		return nil, err
	}

	manager := credentials.NewManager(store, urlLauncher, flow, credentials.WithLogger(logger))

	metricsHandler := handlers.NewMetricsHandler()
	metricsHandler.RegisterPendingFlows(flow.Pending)

	srv := server.NewServer(cfg, logger, store, authenticator, metricsHandler)

	healthHandler := handlers.NewHealthHandler(store, logger)
	whoamiHandler := handlers.NewWhoamiHandler(authenticator, metricsHandler.IncrementAuthFailures, logger)
	platformHandler := handlers.NewPlatformHandler(manager, flow, metricsHandler, logger)
	callbackHandler := handlers.NewCallbackHandler(flow, manager, metricsHandler, logger)

	srv.SetHandlers(server.HandlerSet{
		Health:           healthHandler.GetHealth,
		Metrics:          metricsHandler.GetMetrics,
		Whoami:           whoamiHandler.GetWhoami,
		ListPlatforms:    platformHandler.ListPlatforms,
		ListConnected:    platformHandler.ListConnected,
		GetPlatform:      platformHandler.GetPlatform,
		Connect:          platformHandler.Connect,
		PutCredentials:   platformHandler.PutCredentials,
		DeletePlatform:   platformHandler.DeletePlatform,
		PostCallback:     callbackHandler.PostCallback,
		GetOAuthCallback: callbackHandler.GetOAuthCallback,
	})

	return srv, nil
}
