package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/solatis/switchboard/internal/core/api"
	"github.com/solatis/switchboard/internal/core/auth"
	"github.com/solatis/switchboard/internal/core/config"
	"github.com/solatis/switchboard/internal/core/server"
	"github.com/solatis/switchboard/internal/core/store"
	"github.com/solatis/switchboard/internal/editor"
	"github.com/solatis/switchboard/internal/rules"
	"github.com/solatis/switchboard/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC admin API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.AdminAPI.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.AdminAPI.Port, _ = cmd.Flags().GetInt("port")
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, queries, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set SB_HMAC_SECRET environment variable)")
	}

	operators, arguments, err := registries(cfg)
	if err != nil {
		return err
	}

	switches := store.NewSQL(queries)
	service, err := api.NewAdminService(
		switches,
		editor.New(rules.NewMaterializer(operators, arguments), switches, logger.Named("editor")),
		transport.New(switches, logger.Named("transport"), transport.WithOperators(operators)),
		&cfg.AdminAPI,
		logger.Named("api"),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	authenticator := auth.NewAuthenticator(secrets, queries, logger.Named("auth"))
	grpcServer, err := server.NewGRPCServer(&cfg.AdminAPI, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting switchboard admin API",
		zap.String("version", Version),
		zap.String("host", cfg.AdminAPI.Host),
		zap.Int("port", cfg.AdminAPI.Port),
		zap.Int("arguments", len(arguments.Keys())))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	})
	return g.Wait()
}
