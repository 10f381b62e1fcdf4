package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/gitguide"
	"pkt.systems/gitguide/gateway"
	"pkt.systems/gitguide/internal/appconfig"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gitguide gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			serverCfg := gitguide.ServerConfig{
				Gateway: gateway.Config{
					Addr:        cfg.HTTP.Addr,
					UpstreamURL: cfg.Workspace.BaseURL,
					BaseURL:     cfg.HTTP.BaseURL,
					BasePath:    cfg.HTTP.BasePath,
				},
			}
			server, err := gitguide.New(serverCfg, gitguide.WithGateway())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("gateway listening", "addr", cfg.HTTP.Addr, "upstream", cfg.Workspace.BaseURL)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
