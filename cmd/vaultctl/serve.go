package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debtvault/observability/otel"
	"debtvault/rpc"
)

func runServe(configPath string, args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet("serve", stderr)
	listen := flags.String("listen", "", "override the configured listen address")
	instance := flags.String("instance", envOr("VAULTCTL_INSTANCE", ""), "telemetry instance id; random when empty")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		telemetry := env.cfg.Telemetry
		programs := env.programs()
		otelCfg := otel.Config{
			ServiceName:    "vaultctl",
			ServiceVersion: version,
			InstanceID:     *instance,
			Environment:    env.cfg.Log.Env,
			Endpoint:       telemetry.Endpoint,
			Insecure:       telemetry.Insecure,
			Headers:        otel.ParseHeaders(telemetry.Headers),
			Metrics:        telemetry.Metrics,
			Traces:         telemetry.Traces,
		}
		if !programs.Vault.IsZero() {
			otelCfg.VaultProgram = programs.Vault.String()
		}
		if !programs.Faucet.IsZero() {
			otelCfg.FaucetProgram = programs.Faucet.String()
		}
		shutdown, err := otel.Init(ctx, otelCfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		env.logger.Info("telemetry configured",
			slog.String("endpoint", telemetry.Endpoint),
			slog.Bool("metrics", telemetry.Metrics),
			slog.Bool("traces", telemetry.Traces),
			slog.String("otlp_headers", telemetry.Headers))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()

		address := env.cfg.RPC.ListenAddress
		if *listen != "" {
			address = *listen
		}
		server := rpc.NewServer(env.ledger, programs, rpc.Config{
			ListenAddress: address,
			RateLimit: rpc.RateLimit{
				RequestsPerMinute: float64(env.cfg.RPC.RequestsPerMinute),
				Burst:             env.cfg.RPC.Burst,
			},
			ReadTimeout:  time.Duration(env.cfg.RPC.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(env.cfg.RPC.WriteTimeoutSecs) * time.Second,
		}, env.logger)
		fmt.Fprintf(stdout, "serving query api on %s\n", address)
		return server.ListenAndServe(ctx)
	})
}
