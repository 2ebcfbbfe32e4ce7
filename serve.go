package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mastermeng/fabricrest/internal/auth"
	"github.com/mastermeng/fabricrest/internal/config"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/mastermeng/fabricrest/internal/relay"
	"github.com/mastermeng/fabricrest/internal/server"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var configPath string

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST relay.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "./config/config-server.yaml", "Path of the server configuration file.")
	return cmd
}

func serve(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	zl, err := cfg.Log.Logger()
	if err != nil {
		return err
	}
	defer zl.Sync()
	logger := zl.Sugar()

	table, err := dispatch.LoadTable(cfg.Dispatch.TablePath)
	if err != nil {
		return err
	}
	logger.Debugf("dispatch table: %d functions", len(table))

	network, err := ledger.Open(cfg, logger.Named("ledger"))
	if err != nil {
		return err
	}
	defer network.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	tokens := auth.NewTokens(cfg.RestfulServer.JWTSecret, cfg.RestfulServer.TokenTTL)
	svc, err := relay.New(network, table, tokens, logger.Named("relay"), reg)
	if err != nil {
		return err
	}

	srv, err := server.New(svc, tokens, logger.Named("server"), reg, server.Options{
		Addr:            ":" + cfg.RestfulServer.Port,
		AllowedOrigins:  cfg.RestfulServer.AllowedOrigins,
		ShutdownTimeout: cfg.RestfulServer.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return errors.WithMessage(err, "server exited")
	}
	return nil
}
